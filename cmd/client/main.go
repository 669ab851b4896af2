// Command overlay-client issues one QueryData call against a running
// portal node and prints the JSON response. Interactive client menus are
// explicitly out of scope (spec §1), so this stays a single-shot tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/basecamp-overlay/overlay/internal/genproto"
	"github.com/basecamp-overlay/overlay/internal/model"

	_ "github.com/basecamp-overlay/overlay/internal/rpccodec" // registers the JSON "proto" codec
)

var (
	address     string
	kind        string
	key         int64
	rangeStart  int64
	rangeEnd    int64
	stringParam string
	clientID    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "overlay-client",
		Short: "overlay-client issues one QueryData call against a portal node",
		RunE:  runQuery,
	}
	rootCmd.Flags().StringVar(&address, "address", "127.0.0.1:7000", "portal node's gRPC address")
	rootCmd.Flags().StringVar(&kind, "kind", "exact", "query kind: exact|range|all|write")
	rootCmd.Flags().Int64Var(&key, "key", 0, "key for exact/write queries")
	rootCmd.Flags().Int64Var(&rangeStart, "range-start", 0, "range start for range queries")
	rootCmd.Flags().Int64Var(&rangeEnd, "range-end", 0, "range end for range queries")
	rootCmd.Flags().StringVar(&stringParam, "value", "", "string value for write queries")
	rootCmd.Flags().StringVar(&clientID, "client-id", "overlay-client", "client id sent with the query")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close()

	client := genproto.NewOverlayServiceClient(conn)
	q := &model.Query{
		QueryID:     uuid.NewString(),
		ClientID:    clientID,
		Kind:        model.QueryKind(kind),
		Key:         key,
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
		StringParam: stringParam,
		ClientTsMs:  time.Now().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.QueryData(ctx, q)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
