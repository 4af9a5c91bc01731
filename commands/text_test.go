package commands

import (
	"testing"
)

func TestCat(t *testing.T) {
	cases := goldenTestSuite{
		"files":     {Args: []string{"cat", "notes.txt", "/etc/motd"}},
		"number":    {Args: []string{"cat", "-n", "notes.txt"}},
		"stdin":     {Args: []string{"cat"}, Stdin: "piped\n"},
		"dash":      {Args: []string{"cat", "/etc/motd", "-"}, Stdin: "piped\n"},
		"missing":   {Args: []string{"cat", "nope", "/etc/motd"}, ExitStatus: 1},
		"directory": {Args: []string{"cat", "/tmp"}, ExitStatus: 1},
	}

	cases.Run(t, Cat)
}

func TestWc(t *testing.T) {
	cases := goldenTestSuite{
		"file":    {Args: []string{"wc", "notes.txt"}},
		"lines":   {Args: []string{"wc", "-l", "notes.txt", "/etc/motd"}},
		"stdin":   {Args: []string{"wc"}, Stdin: "a b\nc\n"},
		"chars":   {Args: []string{"wc", "-m"}, Stdin: "héllo"},
		"missing": {Args: []string{"wc", "nope"}, ExitStatus: 1},
	}

	cases.Run(t, Wc)
}

func TestGrep(t *testing.T) {
	cases := goldenTestSuite{
		"match":         {Args: []string{"grep", "t", "notes.txt"}},
		"invert-number": {Args: []string{"grep", "-vn", "t", "notes.txt"}},
		"count":         {Args: []string{"grep", "-c", "e", "notes.txt", "/etc/motd"}},
		"ignore-case":   {Args: []string{"grep", "-i", "WELCOME", "/etc/motd"}},
		"stdin":         {Args: []string{"grep", "^b"}, Stdin: "a\nb\nbc\n"},
		"no-match":      {Args: []string{"grep", "zzz", "notes.txt"}, ExitStatus: 1},
		"bad-pattern":   {Args: []string{"grep", "("}, ExitStatus: 2},
		"no-pattern":    {Args: []string{"grep"}, ExitStatus: 2},
		"missing":       {Args: []string{"grep", "x", "nope"}, ExitStatus: 2},
	}

	cases.Run(t, Grep)
}

func TestHead(t *testing.T) {
	cases := goldenTestSuite{
		"default":  {Args: []string{"head"}, Stdin: "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n"},
		"lines":    {Args: []string{"head", "-n", "2", "notes.txt"}},
		"multiple": {Args: []string{"head", "-n", "1", "notes.txt", "/etc/motd"}},
		"no-eol":   {Args: []string{"head", "-n", "5"}, Stdin: "a\nb"},
	}

	cases.Run(t, Head)
}
