package version

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), runtime.GOOS)

	info := Get()
	require.Equal(t, Version, info.Version)
	require.Equal(t, runtime.Version(), info.GoVersion)
	require.NotEmpty(t, info.Commit)
}

// TestAttachCobraVersionCommand runs the subcommand in both modes.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "alarm-test"}
	AttachCobraVersionCommand(root)

	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"version", "--short"})

	require.NoError(t, root.Execute())
	require.Equal(t, Short()+"\n", out.String())
}
