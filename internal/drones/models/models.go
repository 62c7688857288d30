// Package models defines the drone snapshot report and its XML decoding.
package models

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	dErrors "dronewatch/pkg/domain-errors"
)

// Observation is one tracked drone within a capture. Coordinates are in
// millimeters from the sensor origin.
type Observation struct {
	Serial string
	X      float64
	Y      float64
	Z      float64
}

// Capture is one timestamped batch of observations.
type Capture struct {
	Time   time.Time
	Drones []Observation
}

// Report is a decoded snapshot document. A report may contain several
// captures; only the freshest one is authoritative.
type Report struct {
	Captures []Capture
}

// Freshest returns the capture with the greatest timestamp. With equal
// timestamps the earliest capture in document order is kept. ok is false
// for a report without captures.
func (r *Report) Freshest() (Capture, bool) {
	var best Capture
	found := false
	for _, c := range r.Captures {
		if !found || c.Time.After(best.Time) {
			best = c
			found = true
		}
	}
	return best, found
}

// Wire layout of the sensor report. Position values are decoded from
// text so surrounding whitespace never fails the parse.
type xmlReport struct {
	XMLName  xml.Name     `xml:"report"`
	Captures []xmlCapture `xml:"capture"`
}

type xmlCapture struct {
	Timestamp string     `xml:"snapshotTimestamp,attr"`
	Drones    []xmlDrone `xml:"drone"`
}

type xmlDrone struct {
	Serial string `xml:"serialNumber"`
	X      string `xml:"xPosition"`
	Y      string `xml:"yPosition"`
	Z      string `xml:"zPosition"`
}

// ParseReport decodes a snapshot document. The root element must be
// "report" and every capture needs a parseable offset-aware timestamp.
func ParseReport(r io.Reader) (*Report, error) {
	var wire xmlReport
	if err := xml.NewDecoder(r).Decode(&wire); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParse, "decoding snapshot report")
	}

	report := &Report{Captures: make([]Capture, 0, len(wire.Captures))}
	for _, wc := range wire.Captures {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(wc.Timestamp))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeParse, "invalid capture timestamp")
		}
		capture := Capture{Time: ts, Drones: make([]Observation, 0, len(wc.Drones))}
		for _, wd := range wc.Drones {
			obs, err := wd.observation()
			if err != nil {
				return nil, err
			}
			capture.Drones = append(capture.Drones, obs)
		}
		report.Captures = append(report.Captures, capture)
	}
	return report, nil
}

func (d xmlDrone) observation() (Observation, error) {
	serial := strings.TrimSpace(d.Serial)
	if serial == "" {
		return Observation{}, dErrors.New(dErrors.CodeParse, "drone without serial number")
	}
	x, err := position(d.X)
	if err != nil {
		return Observation{}, err
	}
	y, err := position(d.Y)
	if err != nil {
		return Observation{}, err
	}
	z, err := position(d.Z)
	if err != nil {
		return Observation{}, err
	}
	return Observation{Serial: serial, X: x, Y: y, Z: z}, nil
}

func position(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeParse, "invalid position value")
	}
	return v, nil
}
