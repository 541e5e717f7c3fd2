package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

func TestAirdropKey(t *testing.T) {

	a := model.Airdrop{Name: "  Project   X "}

	assert.Equal(t, "  Project   X ", a.Key(model.DedupExact))
	assert.Equal(t, "project x", a.Key(model.DedupNormalized))
	assert.Equal(t, a.Name, a.Key("bogus"))
}

func TestAirdropIsFree(t *testing.T) {

	testCases := []struct {
		value string
		want  bool
	}{
		{"FREE", true},
		{"Free mint", true},
		{"$0 cost", true},
		{"$50", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			assert.Equal(t, tc.want, model.Airdrop{Value: tc.value}.IsFree())
		})
	}
}

func TestScanResultCountsAndFailed(t *testing.T) {

	res := model.ScanResult{
		Airdrops: []model.Airdrop{
			{Name: "Foo", Source: "a"},
			{Name: "Bar", Source: "a"},
			{Name: "Baz", Source: "b"},
		},
		Sources: []model.SourceReport{
			{Source: "a", Status: model.StatusOK},
			{Source: "b", Status: model.StatusOK},
			{Source: "c", Status: model.StatusTransportError},
			{Source: "d", Status: model.StatusEmpty},
		},
	}

	assert.Equal(t, 3, res.TotalFound())
	assert.Equal(t, map[string]int{"a": 2, "b": 1, "c": 0, "d": 0}, res.Counts())

	failed := res.Failed()
	if assert.Len(t, failed, 1) {
		assert.Equal(t, "c", failed[0].Source)
	}
}
