package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/wardriver/internal/storage"
)

// Run plots the observations of one or every session and writes the image to
// the configured output file.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	if _, err = os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store, err := storage.OpenReadOnly(ctx, config.DBPath, storage.WithLogger(logger))
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := readMapData(ctx, store, config.SessionID, logger)
	if err != nil {
		return err
	}

	renderer := NewMapRenderer(RenderConfig{
		Size:          config.Size,
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		NoAnnotations: config.NoAnnotations,
	})

	logger.Info("rendering map",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("size", config.Size),
		))

	img, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering map: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	return encodeImage(out, img, config.Format)
}

func readMapData(ctx context.Context, store storage.Reporter, sessionID int64, logger *slog.Logger) (*MapData, error) {
	points, err := store.MapPoints(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data := NewMapData()
	for _, p := range points {
		data.Update(p)
	}
	if data.Empty() {
		if sessionID == 0 {
			return nil, errors.New("database holds no observations")
		}
		return nil, fmt.Errorf("session %d holds no observations", sessionID)
	}

	bounds := data.Histogram.Bounds()

	logger.Info("finished reading observations",
		slog.Group("stats",
			slog.Int("observations", len(data.Points)),
			slog.Int("networks", data.Networks()),
			slog.Int("sessions", data.Sessions()),
			slog.String("minTimestamp", data.TimestampStart.Local().Format(time.DateTime)),
			slog.String("maxTimestamp", data.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("minSignal", fmt.Sprintf("%0.0fdBm", bounds.Min)),
			slog.String("maxSignal", fmt.Sprintf("%0.0fdBm", bounds.Max)),
		))

	return data, nil
}

func encodeImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 98})
	default:
		return fmt.Errorf("invalid image format: %s", format)
	}
}
