package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskmap/pkg/cache"
	taskerr "github.com/matzehuels/taskmap/pkg/errors"
	"github.com/matzehuels/taskmap/pkg/graph"
	"github.com/matzehuels/taskmap/pkg/layout/layered"
	"github.com/matzehuels/taskmap/pkg/store"
)

const (
	defaultServeAddr = "127.0.0.1:7420"
	shutdownTimeout  = 5 * time.Second
	maxBodyBytes     = 1 << 20

	// serveCacheEntries bounds the in-memory layout cache of a server.
	serveCacheEntries = 64
)

// serveCommand creates the serve command that exposes the store over a
// loopback HTTP API for a local web or desktop shell.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr        string
		saveOnExit  bool
		allowRemote bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task map over a local HTTP API",
		Long: `Serve the current snapshot over a JSON API for a local shell.

  GET    /api/snapshot
  POST   /api/nodes              {"parentId", "level", "label"}
  PATCH  /api/nodes/{id}         {"label", "completed", "position"}
  DELETE /api/nodes/{id}
  POST   /api/nodes/{id}/move    {"target"}
  POST   /api/nodes/{id}/pin
  DELETE /api/nodes/{id}/pin
  POST   /api/layout             {"mode": "tree"|"layered", "direction"}
  POST   /api/undo
  POST   /api/redo
  POST   /api/save

The server listens on the loopback interface unless --allow-remote is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allowRemote {
				if err := requireLoopback(addr); err != nil {
					return err
				}
			}
			return c.runServe(cmd.Context(), addr, saveOnExit)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().BoolVar(&saveOnExit, "save-on-exit", true, "save the snapshot when the server stops")
	cmd.Flags().BoolVar(&allowRemote, "allow-remote", false, "allow a non-loopback listen address")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, saveOnExit bool) error {
	sess, err := c.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer sess.close()

	opts, err := c.layeredOptions("")
	if err != nil {
		return err
	}
	opts.Cache = cache.NewTiered(cache.NewMemoryCache(serveCacheEntries), opts.Cache, opts.CacheTTL)
	defer opts.Cache.Close()

	api := &apiServer{
		store:   sess.store,
		layered: opts,
		logger:  c.Logger,
		save: func(ctx context.Context) (string, error) {
			return sess.name, sess.save(ctx)
		},
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	printSuccess("Serving %s", StyleValue.Render(sess.store.BatchTitle()))
	printDetail("http://%s/api/snapshot", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return taskerr.Wrap(taskerr.ErrCodeInternal, err, "listen on %s", addr)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.Logger.Warn("shutdown", "err", err)
		}
	}

	if saveOnExit {
		if err := sess.save(context.Background()); err != nil {
			return err
		}
		printSuccess("Saved %s", StyleValue.Render(sess.name))
	}
	return nil
}

// requireLoopback rejects listen addresses outside the local machine.
func requireLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return taskerr.Wrap(taskerr.ErrCodeInvalidInput, err, "listen address %q", addr)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return taskerr.New(taskerr.ErrCodeInvalidInput, "%q is not a loopback address (use --allow-remote)", addr)
}

// =============================================================================
// API Server
// =============================================================================

// apiServer adapts a store to HTTP. The store serializes every call, so
// handlers need no locking of their own.
type apiServer struct {
	store   *store.Store
	layered layered.Options
	logger  *log.Logger
	save    func(ctx context.Context) (string, error)
}

func (a *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", a.getSnapshot)
		r.Post("/nodes", a.addNode)
		r.Route("/nodes/{id}", func(r chi.Router) {
			r.Patch("/", a.patchNode)
			r.Delete("/", a.deleteNode)
			r.Post("/move", a.moveNode)
			r.Post("/swap", a.swapNode)
			r.Post("/pin", a.pinNode)
			r.Delete("/pin", a.unpinNode)
		})
		r.Post("/layout", a.applyLayout)
		r.Post("/undo", a.undo)
		r.Post("/redo", a.redo)
		r.Post("/save", a.saveSnapshot)
	})
	return r
}

func (a *apiServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "took", time.Since(start))
	})
}

// stateResponse is the body of every endpoint that returns the map.
type stateResponse struct {
	Snapshot graph.Snapshot `json:"snapshot"`
	CanUndo  bool           `json:"canUndo"`
	CanRedo  bool           `json:"canRedo"`
}

func (a *apiServer) state() stateResponse {
	return stateResponse{
		Snapshot: a.store.Snapshot(),
		CanUndo:  a.store.CanUndo(),
		CanRedo:  a.store.CanRedo(),
	}
}

func (a *apiServer) getSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.state())
}

type addNodeRequest struct {
	ParentID string `json:"parentId"`
	Level    int    `json:"level"`
	Label    string `json:"label"`
}

func (a *apiServer) addNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Label != "" {
		if err := taskerr.ValidateLabel(req.Label); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.ParentID != "" {
		if _, ok := a.store.Node(req.ParentID); !ok {
			writeError(w, nodeNotFound(req.ParentID))
			return
		}
	}

	id := a.store.AddNode(req.ParentID, req.Level)
	if id == "" {
		writeError(w, taskerr.New(taskerr.ErrCodeInvalidTopology, "todos cannot have children"))
		return
	}
	if req.Label != "" {
		a.store.UpdateNodeLabel(id, req.Label)
	}

	n, _ := a.store.Node(id)
	writeJSON(w, http.StatusCreated, n)
}

type patchNodeRequest struct {
	Label     *string         `json:"label"`
	Completed *bool           `json:"completed"`
	Position  *graph.Position `json:"position"`
}

func (a *apiServer) patchNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, ok := a.store.Node(id)
	if !ok {
		writeError(w, nodeNotFound(id))
		return
	}

	var req patchNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Label != nil {
		if err := taskerr.ValidateLabel(*req.Label); err != nil {
			writeError(w, err)
			return
		}
		a.store.UpdateNodeLabel(id, *req.Label)
	}
	if req.Completed != nil && *req.Completed != n.Data.Completed {
		a.store.ToggleNodeCompleted(id)
	}
	if req.Position != nil {
		a.store.SetNodePosition(id, *req.Position)
	}

	n, _ = a.store.Node(id)
	writeJSON(w, http.StatusOK, n)
}

func (a *apiServer) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed := a.store.DeleteNode(id)
	if removed == 0 {
		writeError(w, nodeNotFound(id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": removed})
}

type moveNodeRequest struct {
	Target string `json:"target"`
}

func (a *apiServer) moveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req moveNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	for _, ref := range []string{id, req.Target} {
		if _, ok := a.store.Node(ref); !ok {
			writeError(w, nodeNotFound(ref))
			return
		}
	}
	if !a.store.MoveNode(id, req.Target) {
		writeError(w, taskerr.New(taskerr.ErrCodeInvalidTopology, "cannot move %s under %s", id, req.Target))
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

type swapNodeRequest struct {
	Slot int `json:"slot"`
}

// swapNode trades slots with the sibling at req.Slot and re-lays the map.
func (a *apiServer) swapNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req swapNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := a.store.Node(id); !ok {
		writeError(w, nodeNotFound(id))
		return
	}
	if !a.store.SwapNodeSlots(id, req.Slot) {
		writeError(w, taskerr.New(taskerr.ErrCodeInvalidInput, "no sibling of %s holds slot %d", id, req.Slot))
		return
	}
	a.store.Reflow()
	writeJSON(w, http.StatusOK, a.state())
}

func (a *apiServer) pinNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := a.store.Node(id); !ok {
		writeError(w, nodeNotFound(id))
		return
	}
	if !a.store.PinNode(id) {
		writeError(w, taskerr.New(taskerr.ErrCodeInvalidTopology, "%s has children or is already pinned", id))
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *apiServer) unpinNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.store.UnpinNode(id) {
		writeError(w, taskerr.New(taskerr.ErrCodeNotFound, "%s is not pinned", id))
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

type layoutRequest struct {
	Mode      string `json:"mode"`
	Direction string `json:"direction"`
}

func (a *apiServer) applyLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.Mode {
	case "", "tree":
		a.store.ApplyAutoLayout()
	case "layered":
		opts := a.layered
		if req.Direction != "" {
			dir, err := layered.ParseDirection(req.Direction)
			if err != nil {
				writeError(w, err)
				return
			}
			opts.Direction = dir
		}
		if err := <-a.store.ApplyLayeredLayout(r.Context(), opts); err != nil {
			writeError(w, err)
			return
		}
	default:
		writeError(w, taskerr.New(taskerr.ErrCodeInvalidInput, "unknown layout mode %q", req.Mode))
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *apiServer) undo(w http.ResponseWriter, r *http.Request) {
	if !a.store.Undo() {
		writeError(w, taskerr.New(taskerr.ErrCodeInvalidInput, "nothing to undo"))
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *apiServer) redo(w http.ResponseWriter, r *http.Request) {
	if !a.store.Redo() {
		writeError(w, taskerr.New(taskerr.ErrCodeInvalidInput, "nothing to redo"))
		return
	}
	writeJSON(w, http.StatusOK, a.state())
}

func (a *apiServer) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	name, err := a.save(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

// =============================================================================
// Helpers
// =============================================================================

type errorResponse struct {
	Code    taskerr.Code `json:"code"`
	Message string       `json:"message"`
}

func nodeNotFound(id string) error {
	return taskerr.New(taskerr.ErrCodeNotFound, "node %s not found", id)
}

// decodeBody reads a JSON body into v. An empty body leaves v zero.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, taskerr.Wrap(taskerr.ErrCodeInvalidInput, err, "invalid JSON body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := taskerr.GetCode(err)
	if code == "" {
		code = taskerr.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorResponse{Code: code, Message: taskerr.UserMessage(err)})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code taskerr.Code) int {
	switch code {
	case taskerr.ErrCodeNotFound:
		return http.StatusNotFound
	case taskerr.ErrCodeInvalidInput, taskerr.ErrCodeInvalidName, taskerr.ErrCodeInvalidSnapshot:
		return http.StatusBadRequest
	case taskerr.ErrCodeInvalidTopology:
		return http.StatusConflict
	case taskerr.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case taskerr.ErrCodeLayoutFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
