// Command routingd-loader is the ambient CLI front end over
// internal/loader, the dispatch specification's external-loader
// contract (§4.5). It reads a JSON dataset description and either
// publishes it once or, given a cron expression, republishes it on a
// schedule into whichever region is not currently live — a stand-in
// for a real OSM-preprocessing pipeline, which is out of this
// specification's scope (see SPEC_FULL.md §1 "Out of scope").
//
// The cron scheduling itself is grounded on the teacher's
// github.com/robfig/cron/v3-backed plugin scheduler: one shared
// *cron.Cron instance, jobs added with AddFunc, Start/Stop bracketing
// the process lifetime.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/osrm-go/routingd/internal/applog"
	"github.com/osrm-go/routingd/internal/dataset"
	"github.com/osrm-go/routingd/internal/events"
	"github.com/osrm-go/routingd/internal/geo"
	"github.com/osrm-go/routingd/internal/loader"
)

// datasetFile is the on-disk JSON shape a deployment's preprocessing
// step hands to this CLI: node coordinates, edges referencing them by
// index, geometry points referenced by the edges, and a name table.
type datasetFile struct {
	Nodes    []geo.Point `json:"nodes"`
	Geometry []geo.Point `json:"geometry"`
	Names    []string    `json:"names"`
	Edges    []edgeSpec  `json:"edges"`
}

type edgeSpec struct {
	Source   uint32 `json:"source"`
	Target   uint32 `json:"target"`
	Weight   uint32 `json:"weight"`
	NameID   uint32 `json:"name_id"`
	GeomFrom uint32 `json:"geom_from"`
	GeomTo   uint32 `json:"geom_to"`
}

func (d datasetFile) toBuildInput() dataset.BuildInput {
	in := dataset.BuildInput{Nodes: d.Nodes, Geometry: d.Geometry, Names: d.Names}
	for _, e := range d.Edges {
		in.Edges = append(in.Edges, dataset.NewEdgeRecord(
			dataset.NodeID(e.Source), dataset.NodeID(e.Target), e.Weight, e.NameID, e.GeomFrom, e.GeomTo,
		))
	}
	return in
}

func main() {
	applog.Initialize(getEnv("LOG_LEVEL", "info"), false)

	baseDir := getEnv("SHARED_MEMORY_DIR", "")
	if baseDir == "" {
		applog.Log.Fatal().Msg("SHARED_MEMORY_DIR must be set")
	}
	datasetPath := getEnv("DATASET_FILE", "")
	if datasetPath == "" {
		applog.Log.Fatal().Msg("DATASET_FILE must be set")
	}

	l, err := loader.New(baseDir)
	if err != nil {
		applog.Log.Fatal().Err(err).Msg("failed to open loader")
	}
	defer l.Close()

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		pub, err := events.NewPublisher(events.Config{URL: natsURL, User: os.Getenv("NATS_USER"), Password: os.Getenv("NATS_PASSWORD")})
		if err != nil {
			applog.Log.Error().Err(err).Msg("failed to construct events publisher, continuing without it")
		} else {
			l.Events = pub
			defer pub.Close()
		}
	}

	publishOnce := func() {
		data, err := os.ReadFile(datasetPath)
		if err != nil {
			applog.Log.Error().Err(err).Str("path", datasetPath).Msg("failed to read dataset file")
			return
		}
		var df datasetFile
		if err := json.Unmarshal(data, &df); err != nil {
			applog.Log.Error().Err(err).Msg("failed to parse dataset file")
			return
		}

		region := l.NextRegion()
		generation := l.NextGeneration()
		if err := l.Publish(context.Background(), region, generation, df.toBuildInput()); err != nil {
			applog.Log.Error().Err(err).Str("region", region.String()).Uint64("generation", generation).Msg("publish failed")
			return
		}
		applog.Log.Info().Str("region", region.String()).Uint64("generation", generation).Msg("publish succeeded")
	}

	cronExpr := os.Getenv("PUBLISH_CRON")
	if cronExpr == "" {
		publishOnce()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cronExpr, publishOnce); err != nil {
		applog.Log.Fatal().Err(err).Str("cron", cronExpr).Msg("invalid PUBLISH_CRON expression")
	}
	c.Start()
	defer c.Stop()

	applog.Log.Info().Str("cron", cronExpr).Msg("scheduled periodic publish")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	applog.Log.Info().Msg("routingd-loader shutting down")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
