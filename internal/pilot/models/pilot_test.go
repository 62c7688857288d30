package models

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dronewatch/pkg/domain-errors"
)

var testNow = time.Date(2023, 1, 7, 12, 0, 0, 0, time.UTC)

func validBuilder() Builder {
	return Builder{
		Serial:    "SN-1",
		FirstName: "Riitta",
		LastName:  "Kautiainen",
		Email:     "riitta@example.com",
		Phone:     "+358401234567",
		Distance:  95000,
		Expire:    testNow.Add(10 * time.Minute),
	}
}

func TestBuild(t *testing.T) {
	t.Run("valid builder seals", func(t *testing.T) {
		p, err := validBuilder().Build(testNow)
		require.NoError(t, err)
		assert.Equal(t, "SN-1", p.Serial())
		assert.Equal(t, "Riitta Kautiainen", p.Name())
		assert.Equal(t, 95000.0, p.ClosestDistance())
		assert.Equal(t, testNow.Add(10*time.Minute), p.ExpireTime())
	})

	t.Run("blank serial rejected", func(t *testing.T) {
		b := validBuilder()
		b.Serial = "  "
		_, err := b.Build(testNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("negative distance rejected", func(t *testing.T) {
		b := validBuilder()
		b.Distance = -1
		_, err := b.Build(testNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unresolvable name rejected", func(t *testing.T) {
		b := validBuilder()
		b.FirstName, b.LastName = "", " "
		_, err := b.Build(testNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("single name component suffices", func(t *testing.T) {
		b := validBuilder()
		b.LastName = ""
		p, err := b.Build(testNow)
		require.NoError(t, err)
		assert.Equal(t, "Riitta", p.Name())
	})

	t.Run("expiry at or before now rejected", func(t *testing.T) {
		b := validBuilder()
		b.Expire = testNow
		_, err := b.Build(testNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		b.Expire = time.Time{}
		_, err = b.Build(testNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestStub(t *testing.T) {
	p, err := Stub("SN-9", 42000, testNow.Add(10*time.Minute), testNow)
	require.NoError(t, err)
	assert.Equal(t, "[Pilot of SN-9]", p.Name())
	assert.Empty(t, p.Email())
	assert.Empty(t, p.Phone())
	assert.Equal(t, 42000.0, p.ClosestDistance())
}

func TestMergeDistance(t *testing.T) {
	b := validBuilder()
	b.Distance = 500
	p, err := b.Build(testNow)
	require.NoError(t, err)

	require.NoError(t, p.MergeDistance(300))
	assert.Equal(t, 300.0, p.ClosestDistance())

	require.NoError(t, p.MergeDistance(800))
	assert.Equal(t, 300.0, p.ClosestDistance(), "distance is a monotonic minimum")

	assert.Error(t, p.MergeDistance(-1))
	assert.Equal(t, 300.0, p.ClosestDistance())
}

func TestExtendExpiry(t *testing.T) {
	p, err := validBuilder().Build(testNow)
	require.NoError(t, err)
	sealed := p.ExpireTime()

	p.ExtendExpiry(sealed.Add(-time.Minute))
	assert.Equal(t, sealed, p.ExpireTime(), "expiry never moves backward")

	later := sealed.Add(9 * time.Minute)
	p.ExtendExpiry(later)
	assert.Equal(t, later, p.ExpireTime())
}

func TestExpired(t *testing.T) {
	p, err := validBuilder().Build(testNow)
	require.NoError(t, err)

	assert.False(t, p.Expired(testNow))
	assert.True(t, p.Expired(p.ExpireTime()), "expiry boundary counts as expired")
	assert.True(t, p.Expired(p.ExpireTime().Add(time.Second)))
}

func TestParseDocument(t *testing.T) {
	logger := slog.Default()

	t.Run("known fields mapped", func(t *testing.T) {
		doc, err := ParseDocument(strings.NewReader(`{
			"pilotId": "P-123",
			"firstName": "Kaarlo",
			"lastName": "Juurikka",
			"phoneNumber": "+358401112222",
			"email": "kaarlo@example.com",
			"createdDt": "2022-12-01T10:00:00Z"
		}`), logger)
		require.NoError(t, err)
		assert.Equal(t, "P-123", doc.PilotID)
		assert.Equal(t, "Kaarlo", doc.FirstName)
		assert.Equal(t, "Juurikka", doc.LastName)
		assert.Equal(t, "+358401112222", doc.Phone)
		assert.Equal(t, "kaarlo@example.com", doc.Email)
	})

	t.Run("unknown and mistyped fields dropped", func(t *testing.T) {
		doc, err := ParseDocument(strings.NewReader(`{
			"firstName": "Kaarlo",
			"shoeSize": "44",
			"email": 12345
		}`), logger)
		require.NoError(t, err)
		assert.Equal(t, "Kaarlo", doc.FirstName)
		assert.Empty(t, doc.Email)
	})

	t.Run("missing optional fields stay empty", func(t *testing.T) {
		doc, err := ParseDocument(strings.NewReader(`{"firstName": "Solo"}`), logger)
		require.NoError(t, err)
		assert.Empty(t, doc.LastName)
		assert.Empty(t, doc.Phone)
	})

	t.Run("malformed body fails as parse error", func(t *testing.T) {
		_, err := ParseDocument(strings.NewReader(`<hello/>`), logger)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeParse))
	})
}
