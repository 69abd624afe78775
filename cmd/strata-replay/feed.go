package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantfabric/strata/pkg/common"
	"github.com/quantfabric/strata/pkg/data/duckdb"
	"github.com/quantfabric/strata/pkg/datasource/historical"
)

func replayDuckDB(ctx context.Context, path, symbol string, from, to time.Time, emit func(common.Bar) error) error {
	reader := duckdb.NewReader(path)
	if err := reader.Connect(); err != nil {
		return fmt.Errorf("unable to open bar reader: %w", err)
	}
	defer reader.Close()

	return reader.LoadBars(ctx, symbol, from, to, emit)
}

func replayBinary(ctx context.Context, path string, from, to time.Time, emit func(common.Bar) error) error {
	source := historical.NewSource[historical.BarRecord](path)
	if err := source.Open(); err != nil {
		return fmt.Errorf("unable to open bar capture: %w", err)
	}
	defer source.Close()

	var record historical.BarRecord
	for index := int64(0); ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := source.Read(index, &record); err != nil {
			if errors.Is(err, historical.ErrEof) {
				return nil
			}
			return err
		}

		bar := record.Bar()
		if bar.TimeStamp.Before(from) {
			continue
		}
		if bar.TimeStamp.After(to) {
			return nil
		}
		if err := emit(bar); err != nil {
			return err
		}
	}
}
