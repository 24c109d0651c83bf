package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"palmer/internal/grpcserver"
	"palmer/pkg/logging"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultGRPCAddr = "localhost:9090"
)

func main() {
	global := flag.NewFlagSet("palmer", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "HTTP API base URL")
	grpcAddr := global.String("grpc", "", "use the gRPC API at this address instead of HTTP (list, get, stats)")
	_ = global.Parse(os.Args[1:])

	log := logging.Must("warn", "console")
	defer func() { _ = log.Sync() }()

	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var api queryAPI = &httpAPI{client: &http.Client{Timeout: 15 * time.Second}, baseURL: strings.TrimRight(*baseURL, "/")}
	if *grpcAddr != "" {
		conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatal("grpc dial", zap.String("addr", *grpcAddr), zap.Error(err))
		}
		defer conn.Close()
		api = &grpcAPI{client: grpcserver.NewClient(conn), http: api.(*httpAPI)}
	}

	cmd, rest := args[0], args[1:]
	var (
		out any
		err error
	)
	switch cmd {
	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		status := fs.String("status", "", "only hackathons with this status")
		_ = fs.Parse(rest)
		out, err = api.List(ctx, *status)
	case "get":
		fs := flag.NewFlagSet("get", flag.ExitOnError)
		id := fs.Int64("id", 0, "hackathon id")
		_ = fs.Parse(rest)
		if *id <= 0 {
			log.Fatal("get: -id is required")
		}
		out, err = api.Get(ctx, *id)
	case "stats":
		out, err = api.Stats(ctx)
	case "search":
		fs := flag.NewFlagSet("search", flag.ExitOnError)
		q := fs.String("q", "", "query string")
		limit := fs.Int("limit", 20, "max results")
		_ = fs.Parse(rest)
		if strings.TrimSpace(*q) == "" {
			log.Fatal("search: -q is required")
		}
		out, err = api.Search(ctx, *q, *limit)
	case "runs":
		fs := flag.NewFlagSet("runs", flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(rest)
		out, err = api.Runs(ctx, *limit)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(cmd+" failed", zap.Error(err))
	}
	printJSON(out)
}

type queryAPI interface {
	List(ctx context.Context, status string) (any, error)
	Get(ctx context.Context, id int64) (any, error)
	Stats(ctx context.Context) (any, error)
	Search(ctx context.Context, q string, limit int) (any, error)
	Runs(ctx context.Context, limit int) (any, error)
}

type httpAPI struct {
	client  *http.Client
	baseURL string
}

func (a *httpAPI) List(ctx context.Context, status string) (any, error) {
	var resp struct {
		Count      int              `json:"count"`
		Hackathons []map[string]any `json:"hackathons"`
	}
	if err := a.get(ctx, "/hackathons", nil, &resp); err != nil {
		return nil, err
	}
	if status == "" {
		return resp, nil
	}
	filtered := resp.Hackathons[:0]
	for _, h := range resp.Hackathons {
		s, _ := h["status"].(string)
		if s == "" {
			s = "unknown"
		}
		if strings.EqualFold(s, status) {
			filtered = append(filtered, h)
		}
	}
	resp.Hackathons, resp.Count = filtered, len(filtered)
	return resp, nil
}

func (a *httpAPI) Get(ctx context.Context, id int64) (any, error) {
	var resp map[string]any
	err := a.get(ctx, "/hackathons/"+strconv.FormatInt(id, 10), nil, &resp)
	return resp, err
}

func (a *httpAPI) Stats(ctx context.Context) (any, error) {
	var resp map[string]any
	err := a.get(ctx, "/stats", nil, &resp)
	return resp, err
}

func (a *httpAPI) Search(ctx context.Context, q string, limit int) (any, error) {
	var resp map[string]any
	err := a.get(ctx, "/search", url.Values{"q": {q}, "limit": {strconv.Itoa(limit)}}, &resp)
	return resp, err
}

func (a *httpAPI) Runs(ctx context.Context, limit int) (any, error) {
	var resp map[string]any
	err := a.get(ctx, "/runs", url.Values{"limit": {strconv.Itoa(limit)}}, &resp)
	return resp, err
}

func (a *httpAPI) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return eris.Errorf("GET %s failed: %s", endpoint, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

// grpcAPI serves list, get and stats over gRPC; search and runs are only
// exposed over HTTP.
type grpcAPI struct {
	client *grpcserver.Client
	http   *httpAPI
}

func (a *grpcAPI) List(ctx context.Context, status string) (any, error) {
	return a.client.ListHackathons(ctx, &grpcserver.ListHackathonsRequest{Status: status})
}

func (a *grpcAPI) Get(ctx context.Context, id int64) (any, error) {
	resp, err := a.client.GetHackathon(ctx, &grpcserver.GetHackathonRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Hackathon, nil
}

func (a *grpcAPI) Stats(ctx context.Context) (any, error) {
	return a.client.Stats(ctx, &grpcserver.StatsRequest{})
}

func (a *grpcAPI) Search(ctx context.Context, q string, limit int) (any, error) {
	return a.http.Search(ctx, q, limit)
}

func (a *grpcAPI) Runs(ctx context.Context, limit int) (any, error) {
	return a.http.Runs(ctx, limit)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		zap.L().Fatal("json", zap.Error(err))
	}
	fmt.Println(string(b))
}

func printUsage() {
	fmt.Println("palmer [-api URL] [-grpc ADDR] <command> [flags]")
	fmt.Println("commands:")
	fmt.Println("  list [-status S]")
	fmt.Println("  get -id N")
	fmt.Println("  stats")
	fmt.Println("  search -q QUERY [-limit N]")
	fmt.Println("  runs [-limit N]")
	fmt.Printf("default gRPC address: %s\n", defaultGRPCAddr)
}
