package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	m := Default()
	require.NoError(t, m.Validate())
	assert.Equal(t, 3000, m.Server.Port)
	assert.Equal(t, "src/scss/style.scss", m.Style.Entry)
	assert.Equal(t, "assets/images/", m.Images.Dest)
	assert.Equal(t, 75, m.Images.Quality)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	m := Default()
	m.Server.Port = 70000
	m.Style.Entry = ""
	m.Images.Quality = 0
	m.Tasks = []TaskDef{
		{Name: "build", Kind: "series", Members: []string{"css"}},
		{Name: "build", Kind: "sequence", Members: []string{"js"}},
	}
	m.Watches = []WatchDef{{Name: "html", Pattern: "**/*.html"}}

	err := m.Validate()

	require.Error(t, err)
	for _, want := range []string{
		"server.port 70000 is out of range",
		"style.entry",
		"images.quality 0",
		`task "build" is defined more than once`,
		`kind must be series or parallel, got "sequence"`,
		`watch "html" must name at least one task`,
	} {
		assert.ErrorContains(t, err, want)
	}
}
