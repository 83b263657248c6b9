// FILE: evsink/src/internal/core/entry_test.go
package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_JSON(t *testing.T) {
	fields := []Field{IntField(42), StringField("/nix/store/abc-hello"), IntField(0)}

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.Equal(t, `[42,"/nix/store/abc-hello",0]`, string(data))

	var decoded []Field
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, fields, decoded)

	t.Run("LargeIntegersExact", func(t *testing.T) {
		for _, v := range []uint64{1<<53 + 1, 1<<64 - 2, 1<<64 - 1} {
			data, err := json.Marshal(IntField(v))
			require.NoError(t, err)

			var f Field
			require.NoError(t, json.Unmarshal(data, &f))
			assert.Equal(t, IntField(v), f)
		}
	})

	t.Run("RejectsNegative", func(t *testing.T) {
		var f Field
		assert.Error(t, json.Unmarshal([]byte(`-1`), &f))
	})

	t.Run("RejectsFractionsAndOverflow", func(t *testing.T) {
		var f Field
		assert.Error(t, json.Unmarshal([]byte(`1.5`), &f))
		assert.Error(t, json.Unmarshal([]byte(`18446744073709551616`), &f))
	})

	t.Run("RejectsObjects", func(t *testing.T) {
		var f Field
		assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &f))
	})
}

func TestCloneFields(t *testing.T) {
	assert.Nil(t, CloneFields(nil))

	src := []Field{IntField(1), StringField("x")}
	clone := CloneFields(src)
	src[0] = IntField(99)
	assert.Equal(t, uint64(1), clone[0].Int)
}

func TestParseVerbosity(t *testing.T) {
	testCases := []struct {
		input    string
		expected Verbosity
		wantErr  bool
	}{
		{input: "error", expected: VerbosityError},
		{input: "WARNING", expected: VerbosityWarn},
		{input: " info ", expected: VerbosityInfo},
		{input: "vomit", expected: VerbosityVomit},
		{input: "6", expected: VerbosityDebug},
		{input: "8", wantErr: true},
		{input: "loud", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			v, err := ParseVerbosity(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestEntry_TypeName(t *testing.T) {
	assert.Equal(t, "build", Entry{Kind: KindStart, Type: uint64(ActivityBuild)}.TypeName())
	assert.Equal(t, "set_phase", Entry{Kind: KindResult, Type: uint64(ResultSetPhase)}.TypeName())
	assert.Equal(t, "", Entry{Kind: KindMessage, Type: 105}.TypeName())
	assert.Equal(t, "activity(7)", ActivityType(7).String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
