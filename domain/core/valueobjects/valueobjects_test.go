package valueobjects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "ameliorate/pkg/errors"
)

func TestNodeTypesPartition(t *testing.T) {
	for _, nt := range TopicNodeTypes() {
		assert.True(t, nt.IsTopicType(), nt)
		assert.False(t, nt.IsClaimType(), nt)
	}
	for _, nt := range ClaimNodeTypes() {
		assert.True(t, nt.IsClaimType(), nt)
		assert.False(t, nt.IsTopicType(), nt)
	}
	assert.False(t, NodeType("question").IsValid())

	_, err := ParseNodeType("question")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestRelationTable(t *testing.T) {
	for _, r := range Relations() {
		t.Run(string(r.Parent)+"->"+string(r.Child), func(t *testing.T) {
			// relations never cross between the topic diagram and claim trees
			assert.Equal(t, r.Parent.IsTopicType(), r.Child.IsTopicType())
			assert.Equal(t, r.Parent.IsTopicType(), r.Name.IsTopicRelation())
		})
	}

	r, ok := FindRelation(NodeTypeProblem, NodeTypeSolution)
	require.True(t, ok)
	assert.Equal(t, RelationSolves, r.Name)

	_, ok = FindRelation(NodeTypeProblem, NodeTypeSupport)
	assert.False(t, ok)

	_, err := ValidateRelation(NodeTypeProblem, NodeTypeSolution, RelationCauses)
	assert.True(t, pkgerrors.IsValidation(err))

	r, err = ValidateRelation(NodeTypeRootClaim, NodeTypeCritique, "")
	require.NoError(t, err)
	assert.Equal(t, RelationCritiques, r.Name)
}

func TestNewTitle(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"Climate change", true},
		{"cars-vs_bikes, v2.0", true},
		{"don't panic", true},
		{"", false},
		{"   ", false},
		{"a/b", false},
		{"what?", false},
		{strings.Repeat("a", 100), true},
		{strings.Repeat("a", 101), false},
	}
	for _, tt := range tests {
		_, err := NewTitle(tt.in)
		assert.Equal(t, tt.valid, err == nil, "%q", tt.in)
	}
}

func TestNewUsername(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"keyserj", true},
		{"a-b-c", true},
		{"A1", true},
		{"", false},
		{"-ab", false},
		{"ab-", false},
		{"a--b", false},
		{"a_b", false},
		{strings.Repeat("a", 39), true},
		{strings.Repeat("a", 40), false},
	}
	for _, tt := range tests {
		_, err := NewUsername(tt.in)
		assert.Equal(t, tt.valid, err == nil, "%q", tt.in)
	}
}

func TestNewScoreValue(t *testing.T) {
	for _, v := range []int{1, 5, 10} {
		s, err := NewScoreValue(v)
		require.NoError(t, err)
		assert.Equal(t, v, s.Int())
	}
	for _, v := range []int{0, 11, -3} {
		_, err := NewScoreValue(v)
		assert.Error(t, err)
	}
}

func TestIdentifiers(t *testing.T) {
	id := NewTopicID()
	parsed, err := NewTopicIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))

	_, err = NewNodeIDFromString("not-a-uuid")
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = NewEdgeIDFromString("")
	assert.Error(t, err)
	assert.True(t, EdgeID{}.IsZero())
}
