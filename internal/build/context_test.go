package build

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/hotbuild/internal/config"
	"git.home.luguber.info/inful/hotbuild/internal/plugin"
)

func TestPipelineStageListsPerTrigger(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	s := newTestService(cfg)

	uiPlugin := &plugin.Plugin{Name: "garage", HasUIPage: true}
	plainPlugin := &plugin.Plugin{Name: "police"}

	tests := []struct {
		name    string
		trigger Trigger
		plugin  *plugin.Plugin
		want    []string
	}{
		{
			name:    "plugin with UI",
			trigger: TriggerPlugin,
			plugin:  uiPlugin,
			want:    []string{StageCompilePlugin, StageCompileUIPage, StageFixLayout, StageDeploy},
		},
		{
			name:    "plugin without UI",
			trigger: TriggerPlugin,
			plugin:  plainPlugin,
			want:    []string{StageCompilePlugin, StageFixLayout, StageDeploy},
		},
		{
			name:    "core",
			trigger: TriggerCore,
			want:    []string{StageCompileCore, StageFixLayout, StageDeploy},
		},
		{
			name:    "webview",
			trigger: TriggerWebview,
			want: []string{StageCompileCore, StageCompilePlugins,
				StageCompileUIPages, StageFixLayout, StageDeploy},
		},
		{
			name:    "full",
			trigger: TriggerFull,
			want: []string{StageCleanDist, StageCompileCore, StageCompilePlugins,
				StageCompileUIPages, StageFixLayout, StageDeploy},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := NewContext(cfg, tt.trigger, nil)
			if tt.plugin != nil {
				bc.ForPlugin(tt.plugin)
			}
			pl, err := s.PipelineFor(bc)
			require.NoError(t, err)
			require.Equal(t, tt.want, pl.StageNames())
		})
	}
}

func TestPipelineForUnknownTrigger(t *testing.T) {
	cfg := config.Default()
	s := newTestService(cfg)

	_, err := s.PipelineFor(NewContext(cfg, Trigger("bogus"), nil))
	require.Error(t, err)
}

func TestTouchedDeduplicatesAndSorts(t *testing.T) {
	bc := NewContext(config.Default(), TriggerFull, nil)
	bc.Touch("zeta")
	bc.Touch("alpha")
	bc.Touch("zeta")
	bc.Touch("")

	require.Equal(t, []string{"alpha", "zeta"}, bc.Touched())
}

func TestContextsGetDistinctRunIDs(t *testing.T) {
	cfg := config.Default()
	a := NewContext(cfg, TriggerFull, nil)
	b := NewContext(cfg, TriggerFull, nil)
	require.NotEmpty(t, a.RunID)
	require.NotEqual(t, a.RunID, b.RunID)
}
