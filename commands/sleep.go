package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
)

// parseSleep parses a sleep argument: a number of seconds, optionally with
// an s, m, h or d suffix.
func parseSleep(arg string) (time.Duration, error) {
	multiplier := time.Second
	if n := len(arg); n > 0 {
		switch arg[n-1] {
		case 's':
			arg = arg[:n-1]
		case 'm':
			multiplier, arg = time.Minute, arg[:n-1]
		case 'h':
			multiplier, arg = time.Hour, arg[:n-1]
		case 'd':
			multiplier, arg = 24*time.Hour, arg[:n-1]
		}
	}

	value, err := strconv.ParseFloat(arg, 64)
	if err != nil || value < 0 {
		return 0, errors.New("invalid time interval")
	}
	return time.Duration(value * float64(multiplier)), nil
}

// Sleep implements the POSIX sleep command, summing all its arguments like
// GNU sleep. Killing the job wakes it.
func Sleep(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "sleep NUMBER[SUFFIX]...",
		Short: "Pause for NUMBER seconds, SUFFIX may be s, m, h or d.",
	}

	return cmd.Run(virtOS, func() int {
		args := cmd.Flags().Args()
		if len(args) == 0 {
			fmt.Fprintln(virtOS.Stderr(), "sleep: missing operand")
			return 1
		}

		var total time.Duration
		for _, arg := range args {
			d, err := parseSleep(arg)
			if err != nil {
				cmd.LogProgramError(virtOS, fmt.Errorf("%s: %w", arg, err))
				return 1
			}
			total += d
		}

		timer := time.NewTimer(total)
		defer timer.Stop()

		select {
		case <-timer.C:
			return 0
		case <-virtOS.Context().Done():
			return job.ExitCancelled
		}
	})
}

var _ vos.ProcessFunc = Sleep

func init() {
	mustAddBinCmd("sleep", Sleep)
}
