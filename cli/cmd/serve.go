package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raumaankidwai/nim/lang"
	"github.com/raumaankidwai/nim/log"
	"github.com/raumaankidwai/nim/pkg"
)

// Serve renders templates on request over HTTP.
type Serve struct {
	Addr    string        `default:":8080"     help:"Listen address."                                  short:"a"`
	Root    string        `default:"site"      help:"Site root directory."                             short:"r" type:"path"`
	Index   string        `default:"index.nim" help:"File served for directory requests."`
	Check   bool          `default:"true"      help:"Render every template once before serving."                 negatable:""`
	Timeout time.Duration `default:"5s"        help:"Time allowed for in-flight requests on shutdown."`
}

// Run executes the serve command. It returns when ctx is cancelled and the
// server has shut down.
func (s *Serve) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	site, err := newSite(s.Root, s.Index, engineFrom(ctx))
	if err != nil {
		return err
	}
	defer site.Close()

	if s.Check {
		if err := site.check(ctx); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return ErrServe.With(slog.String("addr", s.Addr)).Wrap(err)
	}

	return s.serve(ctx, ln, site)
}

// serve runs an HTTP server for site on ln until ctx is done.
func (s *Serve) serve(ctx context.Context, ln net.Listener, site *site) error {
	srv := &http.Server{
		Handler:           site,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.InfoContext(ctx, "serving",
		slog.String("addr", ln.Addr().String()),
		slog.String("root", site.dir))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return ErrServe.Wrap(err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
		defer cancel()

		log.DebugContext(ctx, "shutting down", slog.Duration("timeout", s.Timeout))

		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// site maps request paths to files under a root directory.
type site struct {
	root   *os.Root
	dir    string
	index  string
	engine *lang.Engine
}

func newSite(dir, index string, engine *lang.Engine) (*site, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, ErrServeRoot.With(slog.String("root", dir)).Wrap(err)
	}

	return &site{root: root, dir: dir, index: index, engine: engine}, nil
}

func (s *site) Close() error { return s.root.Close() }

// check renders every template under the root once, concurrently.
func (s *site) check(ctx context.Context) error {
	var files []string

	err := fs.WalkDir(s.root.FS(), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && path.Ext(name) == pkg.Extension {
			files = append(files, name)
		}

		return nil
	})
	if err != nil {
		return ErrServeCheck.With(slog.String("root", s.dir)).Wrap(err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.SetLimit(jobs(0))

	for _, name := range files {
		g.Go(func() error {
			src, err := s.read(name)
			if err != nil {
				return ErrServeCheck.With(slog.String("file", name)).Wrap(err)
			}

			if _, err := s.engine.Render(gctx, src, name); err != nil {
				var report bytes.Buffer

				_ = lang.Report(&report, err, src, lang.ReportOptions{})

				log.ErrorContext(ctx, "template check failed",
					slog.String("file", name),
					slog.String("report", report.String()))

				return ErrServeCheck.With(slog.String("file", name)).Wrap(err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.InfoContext(ctx, "templates checked", slog.Int("count", len(files)))

	return nil
}

func (s *site) read(name string) (string, error) {
	data, err := s.root.ReadFile(filepath.FromSlash(name))
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// resolve maps a request path to a file name relative to the root. The
// status is http.StatusOK when a file was found. An extensionless path
// that matches more than one template or page yields
// http.StatusMultipleChoices and the candidates.
func (s *site) resolve(urlPath string) (string, int, []string) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}

	info, err := s.root.Stat(filepath.FromSlash(name))

	switch {
	case err == nil && info.IsDir():
		name = path.Join(name, s.index)

		if info, err := s.root.Stat(filepath.FromSlash(name)); err != nil || info.IsDir() {
			return "", http.StatusNotFound, nil
		}

		return name, http.StatusOK, nil

	case err == nil:
		return name, http.StatusOK, nil

	case path.Ext(name) != "":
		return "", http.StatusNotFound, nil
	}

	var found []string

	for _, ext := range []string{pkg.Extension, ".html"} {
		if info, err := s.root.Stat(filepath.FromSlash(name + ext)); err == nil && !info.IsDir() {
			found = append(found, name+ext)
		}
	}

	switch len(found) {
	case 0:
		return "", http.StatusNotFound, nil
	case 1:
		return found[0], http.StatusOK, nil
	default:
		return "", http.StatusMultipleChoices, found
	}
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	defer func() {
		log.DebugContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)))
	}()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		rec.Header().Set("Allow", "GET, HEAD")
		http.Error(rec, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

		return
	}

	name, status, choices := s.resolve(r.URL.Path)

	switch status {
	case http.StatusOK:
	case http.StatusMultipleChoices:
		rec.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rec.WriteHeader(status)

		for _, c := range choices {
			fmt.Fprintln(rec, "/"+c)
		}

		return
	default:
		http.Error(rec, http.StatusText(status), status)

		return
	}

	if path.Ext(name) == pkg.Extension {
		s.serveTemplate(rec, r, name)

		return
	}

	s.serveFile(rec, r, name)
}

func (s *site) serveTemplate(w http.ResponseWriter, r *http.Request, name string) {
	src, err := s.read(name)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return
	}

	out, err := s.engine.Render(r.Context(), src, name)
	if err != nil {
		log.WarnContext(r.Context(), "render failed",
			slog.String("file", name),
			slog.Any("error", err))

		var report bytes.Buffer

		_ = lang.Report(&report, err, src, lang.ReportOptions{})

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.Copy(w, &report)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "", time.Time{}, strings.NewReader(out))
}

func (s *site) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	file, err := s.root.Open(filepath.FromSlash(name))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

// statusRecorder captures the status code written through it.
type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
