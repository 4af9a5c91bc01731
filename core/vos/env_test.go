package vos

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ExampleCopyEnv() {
	env := NewMapEnv()
	CopyEnv(env, []string{"A=B", "C=D", "E", "F=G=H"})

	fmt.Printf("Environ(): %q\n", env.Environ())
	fmt.Printf("Getenv(\"F\"): %q\n", env.Getenv("F"))

	// Output: Environ(): ["A=B" "C=D" "E=" "F=G=H"]
	// Getenv("F"): "G=H"
}

func ExampleNewMapEnvFromEnvList() {
	env := NewMapEnvFromEnvList([]string{"Z=1", "A=B", "A=C"})

	fmt.Printf("Environ(): %q\n", env.Environ())
	fmt.Printf("Keys(): %q\n", env.Keys())

	// Output: Environ(): ["A=C" "Z=1"]
	// Keys(): ["A" "Z"]
}

func ExampleMapEnv_Unsetenv() {
	env := NewMapEnv()
	env.Setenv("A", "B")
	env.Setenv("C", "D")

	fmt.Println("Before:", env.Environ())
	env.Unsetenv("A")
	fmt.Println("After:", env.Environ())

	// Output: Before: [A=B C=D]
	// After: [C=D]
}

func ExampleMapEnv_LookupEnv() {
	env := NewMapEnv()
	env.Setenv("A", "B")

	val, ok := env.LookupEnv("A")
	fmt.Println("Existing", "val:", val, "ok:", ok)
	val, ok = env.LookupEnv("B")
	fmt.Println("Missing", "val:", val, "ok:", ok)

	// Output: Existing val: B ok: true
	// Missing val:  ok: false
}

func TestMapEnv_Clone(t *testing.T) {
	orig := NewMapEnvFromEnvList([]string{"A=1"})
	clone := orig.Clone()
	clone.Setenv("A", "2")
	clone.Setenv("B", "3")

	assert.Equal(t, []string{"A=1"}, orig.Environ())
	assert.Equal(t, []string{"A=2", "B=3"}, clone.Environ())

	var nilEnv *MapEnv
	assert.Equal(t, 0, nilEnv.Clone().Len())
}

func TestMapEnv_zeroValue(t *testing.T) {
	var env MapEnv
	assert.NoError(t, env.Unsetenv("missing"))
	assert.Empty(t, env.Environ())
	assert.Equal(t, "", env.Getenv("missing"))
}
