package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationMinutesSumsServiceLines(t *testing.T) {
	appt := &Appointment{Services: []ServiceLine{
		{Name: "Cut", DurationMinutes: 45},
		{Name: "Color", DurationMinutes: 90},
	}}
	assert.Equal(t, 135, appt.DurationMinutes())

	assert.Equal(t, 0, (&Appointment{}).DurationMinutes())
}

func TestAppointmentInterval(t *testing.T) {
	appt := testAppointment()

	iv, err := appt.Interval(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 45, iv.Minutes())
	assert.Equal(t, "2026-03-02", iv.Start.Format("2006-01-02"))
	assert.Equal(t, "10:00", iv.Start.Format("15:04"))

	appt.EndTime = "09:00"
	_, err = appt.Interval(time.UTC)
	assert.Error(t, err, "end before start must not parse")
}

func TestHasResource(t *testing.T) {
	appt := testAppointment()
	appt.ResourceIDs = []string{"room-1", "chair-2"}

	assert.True(t, appt.HasResource("chair-2"))
	assert.False(t, appt.HasResource("room-9"))
}

func TestAppendChangeStampsEntries(t *testing.T) {
	appt := testAppointment()
	appt.AppendChange("owner", "Appointment created.")
	appt.AppendChange("owner", "", "startTime", "endTime")

	require.Len(t, appt.ChangeLog, 2)
	assert.Equal(t, "owner", appt.ChangeLog[0].ChangedBy)
	assert.NotEmpty(t, appt.ChangeLog[0].ChangedAt)
	assert.Equal(t, []string{"startTime", "endTime"}, appt.ChangeLog[1].Fields)
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusNoShow))
	assert.False(t, ValidStatus(Status("snoozed")))
}
