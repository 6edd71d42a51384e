package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-eventadmin/internal/format"
	"github.com/alnah/go-eventadmin/internal/session"
)

// Parallelism for multi-path GET.
const (
	DefaultParallel = 4
	// MaxParallel is the upper limit of concurrent requests.
	MaxParallel = 8
)

// requestOptions holds the flags shared by the request commands.
type requestOptions struct {
	headers  []string
	query    []string
	data     string
	raw      bool
	output   string
	parallel int
}

// sessionOptions converts --header and --query flags.
func (o requestOptions) sessionOptions() ([]session.RequestOption, error) {
	var opts []session.RequestOption
	for _, h := range o.headers {
		k, v, err := splitPair(h)
		if err != nil {
			return nil, fmt.Errorf("--header %q: %w", h, err)
		}
		opts = append(opts, session.WithHeader(k, v))
	}
	for _, q := range o.query {
		k, v, err := splitPair(q)
		if err != nil {
			return nil, fmt.Errorf("--query %q: %w", q, err)
		}
		opts = append(opts, session.WithQuery(k, v))
	}
	return opts, nil
}

// splitPair splits key=value. The key must not be empty.
func splitPair(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", ErrInvalidPair
	}
	return k, v, nil
}

// clampParallel constrains parallel request count to valid range [1, MaxParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxParallel {
		return MaxParallel
	}
	return n
}

// resolvePath places path below prefix unless it is already there.
// Absolute URLs are left alone.
func resolvePath(prefix, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	path = "/" + strings.TrimPrefix(path, "/")
	if prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/") {
		return path
	}
	return prefix + path
}

// readData returns the request body for --data: inline JSON, @file, or
// "-" for stdin. An empty flag means no body.
func readData(env *Env, data string) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	switch {
	case data == "":
		return nil, nil
	case data == "-":
		body, err = io.ReadAll(env.Stdin)
	case strings.HasPrefix(data, "@"):
		body, err = os.ReadFile(data[1:]) // #nosec G304 -- user-specified input file
	default:
		body = []byte(data)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read request data: %w", err)
	}
	if !json.Valid(body) {
		return nil, ErrInvalidData
	}
	return body, nil
}

func addCommonFlags(cmd *cobra.Command, opts *requestOptions) {
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Extra request header as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the response body exactly as received")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the response body to a file instead of stdout")
}

// ---------------------------------------------------------------------------
// get
// ---------------------------------------------------------------------------

// GetCmd creates the get command.
// The env parameter provides injectable dependencies for testing.
func GetCmd(env *Env) *cobra.Command {
	return getCmd(env, "")
}

func getCmd(env *Env, prefix string) *cobra.Command {
	opts := requestOptions{}

	cmd := &cobra.Command{
		Use:   "get <path>...",
		Short: "Fetch one or more API resources",
		Long: `Fetch one or more API resources and print their bodies.

Paths are relative to the API base address. Several paths are fetched
concurrently (--parallel) and printed in the order given. The first
failure stops the command.`,
		Example: `  eventadmin get /events
  eventadmin get /events/1 /events/2 --parallel 2
  eventadmin get /events -q skip=0 -q limit=20 --raw`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, env, prefix, args, opts)
		},
	}
	if prefix != "" {
		cmd.Example = `  eventadmin superadmin get stats
  eventadmin superadmin get users -q role=organizer`
	}

	addCommonFlags(cmd, &opts)
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", DefaultParallel, fmt.Sprintf("Max concurrent requests (1-%d)", MaxParallel))

	return cmd
}

// runGet fetches every path and prints the bodies in argument order.
func runGet(cmd *cobra.Command, env *Env, prefix string, paths []string, opts requestOptions) error {
	reqOpts, err := opts.sessionOptions()
	if err != nil {
		return err
	}

	d, err := openDeps(cmd, env)
	if err != nil {
		return err
	}
	defer d.close()

	results := make([][]byte, len(paths))
	sem := make(chan struct{}, clampParallel(opts.parallel))
	g, ctx := errgroup.WithContext(cmd.Context())

	for i, p := range paths {
		g.Go(func() error {
			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			target := resolvePath(prefix, p)
			resp, err := d.client.Get(ctx, target, reqOpts...)
			if err != nil {
				return fmt.Errorf("GET %s: %w", target, err)
			}
			results[i] = resp.Data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return writeResults(env, opts, results)
}

// ---------------------------------------------------------------------------
// post, put, patch, delete
// ---------------------------------------------------------------------------

// PostCmd creates the post command.
func PostCmd(env *Env) *cobra.Command {
	return sendCmd(env, http.MethodPost, "")
}

// PutCmd creates the put command.
func PutCmd(env *Env) *cobra.Command {
	return sendCmd(env, http.MethodPut, "")
}

// PatchCmd creates the patch command.
func PatchCmd(env *Env) *cobra.Command {
	return sendCmd(env, http.MethodPatch, "")
}

// DeleteCmd creates the delete command.
func DeleteCmd(env *Env) *cobra.Command {
	return sendCmd(env, http.MethodDelete, "")
}

// sendCmd builds a single-path command for method.
func sendCmd(env *Env, method, prefix string) *cobra.Command {
	opts := requestOptions{}
	verb := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   verb + " <path>",
		Short: fmt.Sprintf("Send a %s request", method),
		Long: fmt.Sprintf(`Send a %s request and print the response body.

--data takes inline JSON, @file to read a file, or - to read stdin.`, method),
		Example: fmt.Sprintf(`  eventadmin %s /events --data '{"title":"Gala","capacity":150}'
  eventadmin %s /events/3 --data @event.json`, verb, verb),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, env, method, resolvePath(prefix, args[0]), opts)
		},
	}
	if method == http.MethodDelete {
		cmd.Long = "Send a DELETE request and print the response body, if any."
		cmd.Example = "  eventadmin delete /events/3"
	}

	addCommonFlags(cmd, &opts)
	if method != http.MethodDelete {
		cmd.Flags().StringVarP(&opts.data, "data", "d", "", "JSON body: inline, @file, or - for stdin")
	}

	return cmd
}

// runSend executes a single request with an optional JSON body.
func runSend(cmd *cobra.Command, env *Env, method, path string, opts requestOptions) error {
	reqOpts, err := opts.sessionOptions()
	if err != nil {
		return err
	}
	body, err := readData(env, opts.data)
	if err != nil {
		return err
	}

	d, err := openDeps(cmd, env)
	if err != nil {
		return err
	}
	defer d.close()

	// A nil []byte must reach the client as a nil body.
	var payload any
	if body != nil {
		payload = body
	}
	resp, err := d.client.Do(cmd.Context(), method, path, payload, reqOpts...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return writeResults(env, opts, [][]byte{resp.Data})
}

// writeResults prints each body, indented unless --raw, to stdout or to
// the --output file.
func writeResults(env *Env, opts requestOptions, results [][]byte) error {
	var out []byte
	for _, data := range results {
		if !opts.raw {
			data = format.JSON(data)
		}
		out = append(out, data...)
	}

	if opts.output != "" {
		if err := writeFileAtomic(opts.output, out); err != nil {
			return err
		}
		fmt.Fprintf(env.Stderr, "Wrote %s to %s\n", format.Size(int64(len(out))), opts.output)
		return nil
	}

	_, err := env.Stdout.Write(out)
	return err
}
