package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultSize = 1024
	minSize     = 64
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64 // 0 plots every session
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	Size          int // Longest side of the plot area in pixels
	TimeZone      *time.Location
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Theme:    DefaultTheme,
		Size:     defaultSize,
		TimeZone: time.Local,
	}
}

// NewConfigFromArgs parses command line arguments. The image format is
// appended to the output file name.
func NewConfigFromArgs(name string, args []string) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	var imageFormat, theme, timeZone string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.SessionID, "s", 0, "Session ID, 0 for all sessions")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(DefaultTheme), "Color theme. [enhanced, classic, grayscale, jungle, thermal, marine]")
	fs.IntVar(&c.Size, "size", defaultSize, "Longest side of the map in pixels")
	fs.StringVar(&timeZone, "tz", "", "Time zone for annotations, local time by default")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as scales, legend and info bar")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)
	theme = strings.ToLower(theme)

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID < 0 {
		err = errors.New("session id must not be negative")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validThemes[ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	} else if c.Size < minSize {
		err = fmt.Errorf("size must be at least %d pixels", minSize)
	}

	if err == nil && timeZone != "" {
		if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
			err = fmt.Errorf("invalid time zone: %w", err)
		}
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
