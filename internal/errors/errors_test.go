package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_AttachesMetadataAndReports(t *testing.T) {
	var reported []*EnhancedError
	SetReporter(func(ee *EnhancedError) { reported = append(reported, ee) })
	t.Cleanup(func() { SetReporter(nil) })

	base := NewStd("connection refused")
	ee := New(base).
		Component("notify").
		Category(CategoryDatabase).
		Context("rule_id", "r1").
		Build()

	assert.Equal(t, "connection refused", ee.Error())
	assert.Equal(t, "notify", ee.GetComponent())
	assert.Equal(t, CategoryDatabase, ee.GetCategory())
	assert.Equal(t, "r1", ee.GetContext()["rule_id"])
	assert.True(t, Is(ee, base))
	require.Len(t, reported, 1)
}

func TestBuilder_ReportsOnce(t *testing.T) {
	var count int
	SetReporter(func(*EnhancedError) { count++ })
	t.Cleanup(func() { SetReporter(nil) })

	first := Newf("send failed: %s", "smtp").Component("email").Build()
	again := New(first).Component("notify").Build()

	assert.Same(t, first, again)
	assert.Equal(t, 1, count)
}

func TestBuilder_WrapKeepsOuterContext(t *testing.T) {
	var count int
	SetReporter(func(*EnhancedError) { count++ })
	t.Cleanup(func() { SetReporter(nil) })

	inner := Newf("smtp down").
		Component("email").
		Category(CategoryNetwork).
		Context("host", "mail.example.com").
		Build()
	outer := New(fmt.Errorf("send email to user u1: %w", inner)).
		Component("notify").
		Category(CategoryDelivery).
		Context("user_id", "u1").
		Build()

	assert.Equal(t, "send email to user u1: smtp down", outer.Error())
	assert.Equal(t, "notify", outer.GetComponent())
	assert.Equal(t, CategoryDelivery, outer.GetCategory())
	assert.Equal(t, map[string]any{"host": "mail.example.com", "user_id": "u1"}, outer.GetContext())
	assert.True(t, Is(outer, inner))
	assert.Equal(t, 1, count, "wrapping does not report again")
	assert.Equal(t, map[string]any{"host": "mail.example.com"}, inner.GetContext(), "inner context untouched")

	inherited := New(fmt.Errorf("deliver: %w", inner)).Build()
	assert.Equal(t, "email", inherited.GetComponent())
	assert.Equal(t, CategoryNetwork, inherited.GetCategory())
}
