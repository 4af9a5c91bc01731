package commands

import (
	"fmt"

	"github.com/josephlewis42/vsh/core/vos"
)

// Clear implements the UNIX clear command.
func Clear(virtOS vos.VOS) int {
	if term := virtOS.Getenv("TERM"); term != "" && term != "dumb" {
		// Assumes VT100 compatibility.
		fmt.Fprint(virtOS.Stdout(), "\033[H\033[2J")
	}
	return 0
}

var _ vos.ProcessFunc = Clear

func init() {
	mustAddBinCmd("clear", Clear)
}
