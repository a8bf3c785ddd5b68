package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	rh "github.com/coreybb/ebookgen/route-handlers"
	"github.com/coreybb/ebookgen/storage"
	"github.com/coreybb/ebookgen/webutil"
)

const (
	bookListPath   = "/book-list/"
	bookDetailPath = "/book-detail/{" + paramID + "}/"
	bookCreatePath = "/book-create/"
	bookUpdatePath = "/book-update/{" + paramID + "}/"
	bookDeletePath = "/book-delete/{" + paramID + "}/"
	healthPath     = "/healthz"
)

const (
	paramID = "id"

	crudTimeout              = 60 * time.Second
	defaultGenerationTimeout = 30 * time.Minute
)

// RouteOptions carries the limits applied to the generation endpoint.
type RouteOptions struct {
	MediaRoot               string
	GenerationTimeout       time.Duration
	CreateRequestsPerMinute int
}

func SetupRoutes(bookHandler *rh.BookHandler, opts RouteOptions) http.Handler {
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaultGenerationTimeout
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RealIP)
	r.Use(Logger)
	r.Use(Recoverer)

	// JSON API
	r.Group(func(r chi.Router) {
		r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(crudTimeout))
			configureBookRoutes(r, bookHandler)
		})

		// Generation makes many LLM calls inside one request.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.GenerationTimeout))
			if opts.CreateRequestsPerMinute > 0 {
				r.Use(httprate.LimitByIP(opts.CreateRequestsPerMinute, time.Minute))
			}
			r.Post(bookCreatePath, webutil.MakeHandler(bookHandler.HandleCreateBook))
		})
	})

	configureMediaRoutes(r, opts.MediaRoot)
	r.Get(healthPath, handleHealthCheck)

	return r
}

func configureBookRoutes(r chi.Router, handler *rh.BookHandler) {
	r.Get("/", webutil.MakeHandler(handler.HandleAPIOverview))
	r.Get(bookListPath, webutil.MakeHandler(handler.HandleGetBooks))
	r.Get(bookDetailPath, webutil.MakeHandler(handler.HandleGetBook))
	r.Put(bookUpdatePath, webutil.MakeHandler(handler.HandleUpdateBook))
	r.Delete(bookDeletePath, webutil.MakeHandler(handler.HandleDeleteBook))
}

// configureMediaRoutes serves generated covers, documents and renditions.
// It stays outside the JSON group so the file server picks the content type.
func configureMediaRoutes(r chi.Router, mediaRoot string) {
	prefix := storage.MediaURLPrefix
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(mediaRoot)))
	r.Get(prefix+"*", fs.ServeHTTP)
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}
