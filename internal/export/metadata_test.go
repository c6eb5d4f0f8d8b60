package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()

	src := MetadataSources{
		ModelFile:   writeFile(t, dir, "model", "Raspberry Pi Zero W Rev 1.1\x00"),
		ReleaseFile: writeFile(t, dir, "os-release", "PRETTY_NAME=\"Raspbian GNU/Linux 10 (buster)\"\nNAME=\"Raspbian GNU/Linux\"\n"),
		CPUInfoFile: writeFile(t, dir, "cpuinfo", "processor\t: 0\nmodel name\t: ARMv6-compatible processor rev 7 (v6l)\nBogoMIPS\t: 697.95\n"),
	}

	meta := ReadMetadata(src, "2.3.0", "wardriver", "waveshare_4")

	assert.Equal(t, Metadata{
		AppRelease: "2.3.0",
		Model:      "Raspberry Pi Zero W Rev 1.1",
		Release:    "Raspbian GNU/Linux 10 (buster)",
		Device:     "wardriver",
		Display:    "waveshare_4",
		Board:      "ARMv6-compatible processor rev 7 (v6l)",
		Brand:      "Raspberry Pi Zero W Rev 1.1",
	}, meta)
}

func TestReadMetadata_Fallbacks(t *testing.T) {
	dir := t.TempDir()

	src := MetadataSources{
		ModelFile:   filepath.Join(dir, "missing-model"),
		ReleaseFile: filepath.Join(dir, "missing-release"),
		CPUInfoFile: writeFile(t, dir, "cpuinfo", "processor\t: 0\n"), // no second line
	}

	meta := ReadMetadata(src, "", "", "")

	for name, got := range map[string]string{
		"AppRelease": meta.AppRelease,
		"Model":      meta.Model,
		"Release":    meta.Release,
		"Device":     meta.Device,
		"Display":    meta.Display,
		"Board":      meta.Board,
		"Brand":      meta.Brand,
	} {
		assert.Equal(t, "unknown", got, name)
	}
}

func TestMetadata_PreHeaderSanitizes(t *testing.T) {
	meta := Metadata{Model: "Board, Rev 2", Device: "a\nb"}
	assert.Equal(t,
		"WigleWifi-1.4,appRelease=,model=Board  Rev 2,release=,device=a b,display=,board=,brand=",
		meta.PreHeader())
}
