package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dronewatch/pkg/domain-errors"
)

const twoCaptureReport = `<?xml version="1.0" encoding="UTF-8"?>
<report>
  <deviceInformation deviceId="GUARDB1RD">
    <deviceStarted>2023-01-07T10:00:00.000Z</deviceStarted>
  </deviceInformation>
  <capture snapshotTimestamp="2023-01-07T12:00:00.000Z">
    <drone>
      <serialNumber>SN-OLD-1</serialNumber>
      <positionUpdated>2023-01-07T12:00:00.000Z</positionUpdated>
      <xPosition> 100000.5 </xPosition>
      <yPosition>200000.25</yPosition>
      <zPosition>4000</zPosition>
    </drone>
  </capture>
  <capture snapshotTimestamp="2023-01-07T12:00:02.000Z">
    <drone>
      <serialNumber>SN-NEW-1</serialNumber>
      <xPosition>250000</xPosition>
      <yPosition>349999</yPosition>
      <zPosition>5000</zPosition>
    </drone>
    <drone>
      <serialNumber>SN-NEW-2</serialNumber>
      <xPosition>10000</xPosition>
      <yPosition>10000</yPosition>
      <zPosition>3000</zPosition>
    </drone>
  </capture>
</report>`

func TestParseReport(t *testing.T) {
	report, err := ParseReport(strings.NewReader(twoCaptureReport))
	require.NoError(t, err)
	require.Len(t, report.Captures, 2)

	first := report.Captures[0]
	assert.Equal(t, time.Date(2023, 1, 7, 12, 0, 0, 0, time.UTC), first.Time.UTC())
	require.Len(t, first.Drones, 1)
	assert.Equal(t, "SN-OLD-1", first.Drones[0].Serial)
	assert.Equal(t, 100000.5, first.Drones[0].X, "position text is trimmed before parsing")
	assert.Equal(t, 200000.25, first.Drones[0].Y)
	assert.Equal(t, 4000.0, first.Drones[0].Z)

	require.Len(t, report.Captures[1].Drones, 2)
}

func TestParseReportErrors(t *testing.T) {
	t.Run("wrong root element", func(t *testing.T) {
		_, err := ParseReport(strings.NewReader(`<dossier><capture snapshotTimestamp="2023-01-07T12:00:00Z"/></dossier>`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})

	t.Run("unparseable timestamp", func(t *testing.T) {
		_, err := ParseReport(strings.NewReader(`<report><capture snapshotTimestamp="last tuesday"/></report>`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})

	t.Run("drone missing serial", func(t *testing.T) {
		_, err := ParseReport(strings.NewReader(`<report><capture snapshotTimestamp="2023-01-07T12:00:00Z">
			<drone><xPosition>1</xPosition><yPosition>2</yPosition><zPosition>3</zPosition></drone>
		</capture></report>`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})

	t.Run("unparseable position", func(t *testing.T) {
		_, err := ParseReport(strings.NewReader(`<report><capture snapshotTimestamp="2023-01-07T12:00:00Z">
			<drone><serialNumber>S1</serialNumber><xPosition>wide</xPosition><yPosition>2</yPosition><zPosition>3</zPosition></drone>
		</capture></report>`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})

	t.Run("not xml at all", func(t *testing.T) {
		_, err := ParseReport(strings.NewReader(`{"definitely":"json"}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})
}

func TestFreshest(t *testing.T) {
	t1 := time.Date(2023, 1, 7, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Second)

	t.Run("greatest timestamp wins regardless of order", func(t *testing.T) {
		report := &Report{Captures: []Capture{
			{Time: t2, Drones: []Observation{{Serial: "NEW"}}},
			{Time: t1, Drones: []Observation{{Serial: "OLD"}}},
		}}
		c, ok := report.Freshest()
		require.True(t, ok)
		assert.Equal(t, "NEW", c.Drones[0].Serial)
	})

	t.Run("equal timestamps keep document order winner", func(t *testing.T) {
		report := &Report{Captures: []Capture{
			{Time: t1, Drones: []Observation{{Serial: "FIRST"}}},
			{Time: t1, Drones: []Observation{{Serial: "SECOND"}}},
		}}
		c, ok := report.Freshest()
		require.True(t, ok)
		assert.Equal(t, "FIRST", c.Drones[0].Serial)
	})

	t.Run("empty report has no capture", func(t *testing.T) {
		_, ok := (&Report{}).Freshest()
		assert.False(t, ok)
	})
}
