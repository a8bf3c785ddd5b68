package webutil

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: Failed to marshal JSON response: %v", err)
		w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}

	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondWithCachedJSON writes a 200 response carrying an ETag of the body,
// or 304 when the client already holds that version.
func RespondWithCachedJSON(w http.ResponseWriter, r *http.Request, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithJSON(w, http.StatusOK, payload)
		return
	}
	hash, err := GenerateHash(string(response))
	if err != nil {
		RespondWithJSON(w, http.StatusOK, payload)
		return
	}

	etag := `"` + hash + `"`
	w.Header().Set(HeaderETag, etag)
	if r.Header.Get(HeaderIfNoneMatch) == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(response)
}

// HasResponseWriterSentHeader reports whether a status line has been written
// through a writer wrapped by MakeHandler.
func HasResponseWriterSentHeader(w http.ResponseWriter) bool {
	if ww, ok := w.(middleware.WrapResponseWriter); ok {
		return ww.Status() != 0
	}
	return false
}
