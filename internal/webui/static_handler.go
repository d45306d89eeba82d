package webui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed static
var staticFS embed.FS

var allowedExtensions = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
}

// staticHandler serves the bundled live view. Only flat file names with a
// known extension are served.
func (webUI *WebUI) staticHandler(w http.ResponseWriter, r *http.Request) {
	fileName := r.PathValue("file")
	if fileName == "" {
		fileName = "index.html"
	}
	if strings.Contains(fileName, "..") || strings.ContainsAny(fileName, `/\`) {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}
	contentType, ok := allowedExtensions[strings.ToLower(path.Ext(fileName))]
	if !ok {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	data, err := fs.ReadFile(staticFS, "static/"+fileName)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}
