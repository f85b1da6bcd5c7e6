package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmorelli/climarg/internal/forecast"
	"github.com/nmorelli/climarg/internal/models"
	"github.com/nmorelli/climarg/internal/store"
)

type Server struct {
	store *store.Store
	port  string
	loc   *time.Location

	// now is swappable for tests.
	now func() time.Time
}

func NewServer(st *store.Store, port string) *Server {
	return &Server{
		store: st,
		port:  port,
		loc:   st.Location(),
		now:   time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/current", s.handleCurrent)
	mux.HandleFunc("/api/hourly", s.handleHourly)
	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/carousel", s.handleCarousel)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleCurrent returns current conditions for every active region in
// one array, or for a single region when ?region= is given.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc)

	regions, err := s.regionNames(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]models.CurrentConditions, 0, len(regions))
	for _, region := range regions {
		series, err := s.store.GetSeries(region)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(series) == 0 {
			continue
		}
		out = append(out, BuildCurrent(region, series, now))
	}
	writeJSON(w, out)
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		http.Error(w, "region parameter required", http.StatusBadRequest)
		return
	}

	series, err := s.store.GetSeries(region)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(series) == 0 {
		http.Error(w, "no data for region "+region, http.StatusNotFound)
		return
	}

	entries := BuildHourly(series, s.now().In(s.loc))
	writeJSON(w, entries)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		http.Error(w, "region parameter required", http.StatusBadRequest)
		return
	}

	fc, err := s.store.GetForecast(region)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if fc == nil {
		http.Error(w, "no forecast for region "+region, http.StatusNotFound)
		return
	}
	writeJSON(w, BuildForecastView(fc))
}

// handleCarousel returns the day-1 summary for every active region.
func (s *Server) handleCarousel(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc)

	regions, err := s.regionNames(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]models.CarouselInsight, 0, len(regions))
	for _, region := range regions {
		fc, err := s.store.GetForecast(region)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if fc == nil {
			continue
		}
		out = append(out, forecast.BuildCarousel(fc, now))
	}
	writeJSON(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion()
	if err != nil {
		http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "schema_version": version})
}

func (s *Server) regionNames(r *http.Request) ([]string, error) {
	if region := r.URL.Query().Get("region"); region != "" {
		return []string{region}, nil
	}
	regions, err := s.store.GetActiveRegions()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(regions))
	for _, region := range regions {
		names = append(names, region.Name)
	}
	return names, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
