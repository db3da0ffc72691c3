package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/CaptainRL/captain/internal/database"
	"github.com/CaptainRL/captain/internal/logging"
	"github.com/CaptainRL/captain/internal/model"
	"github.com/CaptainRL/captain/internal/model/convert"
	"github.com/CaptainRL/captain/internal/storage/memory"
	v1 "github.com/CaptainRL/captain/internal/storage/memory/export/v1"

	"gorm.io/gorm"
)

// runExport converts one stored match of a sqlite dump to the JSON export format.
// Without -match it lists the matches in the file.
func runExport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stdout)
	dbPath := fs.String("db", "", "sqlite file written by the sqlite backend")
	matchID := fs.Uint("match", 0, "id of the match to export")
	out := fs.String("o", "", "output file (.json or .json.gz); defaults to the export file name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("-db is required")
	}
	if _, err := os.Stat(*dbPath); err != nil {
		return err
	}

	db, err := database.OpenSqlite(*dbPath, logging.NewZerolog(os.Stderr, "warn"))
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if *matchID == 0 {
		return listMatches(db, stdout)
	}

	data, err := loadMatch(db, *matchID)
	if err != nil {
		return err
	}
	export := v1.Build(data)

	path := *out
	if path == "" {
		path = memory.FileName(data.Match.SessionID, data.Match.StartedAt, true)
	}
	if err := memory.WriteFile(path, export, strings.HasSuffix(path, ".gz")); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported match %d (%d cars) to %s\n", *matchID, len(export.Cars), path)
	return nil
}

func listMatches(db *gorm.DB, w io.Writer) error {
	var matches []model.Match
	if err := db.Order("id").Find(&matches).Error; err != nil {
		return fmt.Errorf("listing matches: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSESSION\tTEAM\tSTARTED\tDECISIONS")
	for _, m := range matches {
		var decisions int64
		db.Model(&model.Decision{}).Where("match_id = ?", m.ID).Count(&decisions)
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\n", m.ID, m.SessionID, m.Team, m.StartedAt.UTC().Format(time.RFC3339), decisions)
	}
	return tw.Flush()
}

// loadMatch reads a match and all of its records back into core types.
func loadMatch(db *gorm.DB, id uint) (*v1.MatchData, error) {
	var m model.Match
	if err := db.First(&m, id).Error; err != nil {
		return nil, fmt.Errorf("match %d: %w", id, err)
	}
	match := convert.MatchToCore(m)
	data := &v1.MatchData{Match: &match}

	var decisions []model.Decision
	if err := db.Where("match_id = ?", id).Order("game_time, id").Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("decisions: %w", err)
	}
	data.Decisions = mapRows(decisions, convert.DecisionToCore)

	var stances []model.StanceChange
	if err := db.Where("match_id = ?", id).Order("game_time, id").Find(&stances).Error; err != nil {
		return nil, fmt.Errorf("stance changes: %w", err)
	}
	data.StanceChanges = mapRows(stances, convert.StanceChangeToCore)

	var trajectories []model.Trajectory
	if err := db.Where("match_id = ?", id).Order("game_time, id").Find(&trajectories).Error; err != nil {
		return nil, fmt.Errorf("trajectories: %w", err)
	}
	data.Trajectories = mapRows(trajectories, convert.TrajectoryToCore)

	var ticks []model.TickSample
	if err := db.Where("match_id = ?", id).Order("game_time").Find(&ticks).Error; err != nil {
		return nil, fmt.Errorf("ticks: %w", err)
	}
	data.Ticks = mapRows(ticks, convert.TickSampleToCore)
	return data, nil
}

func mapRows[M any, C any](rows []M, conv func(M) C) []C {
	out := make([]C, len(rows))
	for i, r := range rows {
		out[i] = conv(r)
	}
	return out
}
