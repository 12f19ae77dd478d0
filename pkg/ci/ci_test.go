package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	for _, p := range providers {
		t.Setenv(p.env, "")
	}
	assert.False(t, IsCI())

	tests := []struct {
		env  []string
		want string
	}{
		{env: []string{"CI"}, want: "custom"},
		{env: []string{"GERRIT_PROJECT"}, want: "gerrit"},
		{env: []string{"GITHUB_ACTIONS"}, want: "github-actions"},
		// travis is checked after the systems which mimic it
		{env: []string{"TRAVIS", "CI", "BITRISE_IO"}, want: "bitrise"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			for _, env := range tc.env {
				t.Setenv(env, "true")
			}
			assert.True(t, IsCI())
			assert.Equal(t, tc.want, Name())
		})
	}
}
