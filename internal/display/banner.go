package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const banner = `       _     _
__   _(_) __| | ___ ___  _ __ ___  _ __  _ __ ___  ___ ___
\ \ / / |/ _` + "`" + ` |/ __/ _ \| '_ ` + "`" + ` _ \| '_ \| '__/ _ \/ __/ __|
 \ V /| | (_| | (_| (_) | | | | | | |_) | | |  __/\__ \__ \
  \_/ |_|\__,_|\___\___/|_| |_| |_| .__/|_|  \___||___/___/
                                  |_|
`

// PrintBanner writes the ASCII art banner and version to w, in magenta when
// colored is set.
func PrintBanner(w io.Writer, colored bool, version string) {
	c := color.New(color.Bold, color.FgHiMagenta)
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprint(w, banner)
	if version != "" {
		fmt.Fprintf(w, "%58s\n", version)
	}
	fmt.Fprintln(w)
}
