// Package model holds the domain types shared by the topology, partition,
// cache, and query-engine packages.
package model

import "time"

// ValueKind discriminates the tagged union carried by DataItem.Value.
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueDouble ValueKind = "double"
	ValueBool   ValueKind = "bool"
	ValueObject ValueKind = "object"
	ValueBytes  ValueKind = "bytes"
)

// Value is a tagged union over the scalar/object/byte payloads a DataItem can
// carry. Only the field matching Kind is meaningful.
type Value struct {
	Kind   ValueKind     `json:"kind"`
	Str    string        `json:"str,omitempty"`
	Num    float64       `json:"num,omitempty"`
	Bool   bool          `json:"bool,omitempty"`
	Object *NestedObject `json:"object,omitempty"`
	Bytes  []byte        `json:"bytes,omitempty"`
}

// NestedObject is the structured payload a DataItem.Value may carry.
type NestedObject struct {
	Name       string            `json:"name"`
	Tags       []string          `json:"tags,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  int64             `json:"created_at"`
	UpdatedAt  int64             `json:"updated_at"`
}

// DataItem is one record owned by a single node's partition.
type DataItem struct {
	Key          int64             `json:"key"`
	Value        Value             `json:"value"`
	SourceNode   string            `json:"source_node"`
	CreatedAtMs  int64             `json:"created_at_ms"`
	DataType     string            `json:"data_type"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// QueryKind enumerates the query shapes the engine understands.
type QueryKind string

const (
	QueryExact QueryKind = "exact"
	QueryRange QueryKind = "range"
	QueryAll   QueryKind = "all"
	QueryWrite QueryKind = "write"
)

// Query is the client-issued request a portal's QueryData RPC receives.
type Query struct {
	QueryID     string    `json:"query_id"`
	ClientID    string    `json:"client_id"`
	Kind        QueryKind `json:"kind"`
	Key         int64     `json:"key,omitempty"`
	RangeStart  int64     `json:"range_start,omitempty"`
	RangeEnd    int64     `json:"range_end,omitempty"`
	StringParam string    `json:"string_param,omitempty"`
	ClientTsMs  int64     `json:"client_ts_ms"`
}

// PeerRequest is the internal overlay message used for GatherData calls.
type PeerRequest struct {
	Query
	RequesterID    string            `json:"requester_id"`
	HopCount       int               `json:"hop_count"`
	MaxHops        int               `json:"max_hops"`
	RoutePath      string            `json:"route_path"`
	VisitedNodes   map[string]bool   `json:"visited_nodes"`
	ForwardToPeers bool              `json:"forward_to_peers"`
	Context        map[string]string `json:"context,omitempty"`
	// DeadlineUnixMs is the absolute wall-clock deadline (Unix ms) of the
	// portal's overall D_total budget, set once by the portal and carried
	// unmodified through every hop. Every relay measures its own
	// remaining aggregate-wait budget against this same deadline (less a
	// small per-hop reply margin) rather than restarting a fresh D_total
	// window on receipt, so the portal's
	// end-to-end response time stays bounded by D_total plus per-hop
	// network slack (spec §5: "the portal query still returns within
	// D_total + small-slack"), regardless of how many hops the request
	// travels.
	DeadlineUnixMs int64 `json:"deadline_unix_ms"`
}

// Visited reports whether nodeID already appears on this request's path.
func (r *PeerRequest) Visited(nodeID string) bool {
	return r.VisitedNodes[nodeID]
}

// MarkVisited appends nodeID to both the route path and the visited set.
func (r *PeerRequest) MarkVisited(nodeID string) {
	if r.VisitedNodes == nil {
		r.VisitedNodes = make(map[string]bool)
	}
	r.VisitedNodes[nodeID] = true
	if r.RoutePath == "" {
		r.RoutePath = nodeID
	} else {
		r.RoutePath += "->" + nodeID
	}
}

// PeerResponse is the answer a gather handler returns to its caller.
type PeerResponse struct {
	RequestID         string     `json:"request_id"`
	Success           bool       `json:"success"`
	Error             string     `json:"error,omitempty"`
	Items             []DataItem `json:"items"`
	ResponderID       string     `json:"responder_id"`
	RoutePath         string     `json:"route_path"`
	ProcessingMs      int64      `json:"processing_ms"`
	ContributingNodes []string   `json:"contributing_nodes"`
}

// QueryResponse is the portal's reply to a client's QueryData call.
type QueryResponse struct {
	QueryID      string     `json:"query_id"`
	Success      bool       `json:"success"`
	Error        string     `json:"error,omitempty"`
	Results      []DataItem `json:"results"`
	ProcessingMs int64      `json:"processing_ms"`
	FromCache    bool       `json:"from_cache"`
}

// Clone returns a deep-enough copy of the response for safe cache reuse —
// callers mutate Results/ProcessingMs/FromCache on the copy, never the
// cached original.
func (r *QueryResponse) Clone() *QueryResponse {
	cp := *r
	cp.Results = append([]DataItem(nil), r.Results...)
	return &cp
}

// CacheEntry wraps a cached QueryResponse with its insertion time for TTL
// and FIFO bookkeeping.
type CacheEntry struct {
	QueryID    string
	Response   *QueryResponse
	InsertedAt time.Time
}
