package webui

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/davecgh/go-spew/spew"

	"pebfutar.app/internal/appconf"
	"pebfutar.app/internal/presentation"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

const debugReadTimeout = 2 * time.Second

type debugData struct {
	Title    string
	Pre      string
	KeyParam template.URL
}

func writeDebugData(w http.ResponseWriter, r *http.Request, title string, data any) {
	var keyParam template.URL
	if key := r.URL.Query().Get("key"); key != "" {
		keyParam = template.URL("&key=" + url.QueryEscape(key))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{Title: title, Pre: spew.Sdump(data), KeyParam: keyParam})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

type menus struct {
	Stops      []presentation.Section
	Departures []presentation.Section
	TripDetail []presentation.Section
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	if !webUI.Loop.Running() {
		http.Error(w, "controller unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), debugReadTimeout)
	defer cancel()

	var (
		data  any
		title string
		err   error
	)
	switch r.URL.Query().Get("dataType") {
	case "state":
		data, err = webUI.Snapshot(ctx)
		title = "Controller - State"
	case "menus":
		var m menus
		err = webUI.Do(ctx, func(c *presentation.Controller) {
			m = menus{
				Stops:      c.Menu(presentation.FlowStops),
				Departures: c.Menu(presentation.FlowDepartures),
				TripDetail: c.Menu(presentation.FlowTripDetail),
			}
		})
		data = m
		title = "Controller - Menus"
	case "favorites":
		data = webUI.Favorites.List(ctx)
		title = "Favorites"
	case "config":
		cfg := webUI.Config
		if cfg.API.Key != "" {
			cfg.API.Key = "REDACTED"
		}
		if cfg.Settings.RedisPassword != "" {
			cfg.Settings.RedisPassword = "REDACTED"
		}
		cfg.Debug.Token = ""
		data = cfg
		title = "Configuration"
	default:
		data = map[string]string{
			"error": "Please use one of the following: state, menus, favorites, config.",
		}
		title = "Choose a data type"
	}

	if err != nil {
		webUI.Logger.Warn("debug read failed", slog.String("error", err.Error()))
		http.Error(w, "controller unavailable", http.StatusServiceUnavailable)
		return
	}
	writeDebugData(w, r, title, data)
}
