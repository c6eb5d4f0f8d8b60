package export

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// FileFormat is the upload-service format version written in the pre-header.
const FileFormat = "WigleWifi-1.4"

const unknown = "unknown"

// MetadataSources are the host files device metadata is read from.
type MetadataSources struct {
	ModelFile   string // Hardware model, e.g. "Raspberry Pi Zero W Rev 1.1"
	ReleaseFile string // os-release; the value of its first line is used
	CPUInfoFile string // cpuinfo; the value of its second line is used
}

// DefaultMetadataSources are the Linux locations of the metadata files.
var DefaultMetadataSources = MetadataSources{
	ModelFile:   "/sys/firmware/devicetree/base/model",
	ReleaseFile: "/etc/os-release",
	CPUInfoFile: "/proc/cpuinfo",
}

// Metadata describes the capturing device in the upload-service pre-header.
type Metadata struct {
	AppRelease string
	Model      string
	Release    string
	Device     string
	Display    string
	Board      string
	Brand      string
}

// ReadMetadata collects device metadata once. Unreadable sources fall back to
// "unknown", it never fails.
func ReadMetadata(src MetadataSources, appRelease, device, display string) Metadata {
	model := readModel(src.ModelFile)

	return Metadata{
		AppRelease: orUnknown(appRelease),
		Model:      model,
		Release:    readRelease(src.ReleaseFile),
		Device:     orUnknown(device),
		Display:    orUnknown(display),
		Board:      readBoard(src.CPUInfoFile),
		Brand:      model, // no better source for the brand
	}
}

// PreHeader renders the first line of an upload-service file, without the newline.
func (m Metadata) PreHeader() string {
	return fmt.Sprintf("%s,appRelease=%s,model=%s,release=%s,device=%s,display=%s,board=%s,brand=%s",
		FileFormat,
		sanitize(m.AppRelease),
		sanitize(m.Model),
		sanitize(m.Release),
		sanitize(m.Device),
		sanitize(m.Display),
		sanitize(m.Board),
		sanitize(m.Brand),
	)
}

func readModel(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return unknown
	}
	return orUnknown(strings.Trim(string(b), "\x00 \t\r\n"))
}

func readRelease(path string) string {
	line, ok := readLine(path, 0)
	if !ok {
		return unknown
	}

	if i := strings.LastIndexByte(line, '='); i >= 0 {
		line = line[i+1:]
	}
	return orUnknown(strings.ReplaceAll(line, `"`, ""))
}

func readBoard(path string) string {
	line, ok := readLine(path, 1)
	if !ok {
		return unknown
	}

	_, value, found := strings.Cut(line, ":")
	if !found {
		return unknown
	}
	return orUnknown(value)
}

func readLine(path string, n int) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; scanner.Scan(); i++ {
		if i == n {
			return scanner.Text(), true
		}
	}
	return "", false
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unknown
	}
	return s
}

// sanitize keeps a value from splitting the comma separated pre-header.
func sanitize(s string) string {
	return strings.NewReplacer(",", " ", "\n", " ", "\r", "").Replace(s)
}
