package cmd

import "testing"

func TestVacuum(t *testing.T) {
	env := newTestEnv(t)

	t.Run("nothing stale", func(t *testing.T) {
		out := env.run("vacuum", "--older-than", "90d")
		env.contains(out, "No stale usage to forget")
	})

	t.Run("dry run json", func(t *testing.T) {
		out := env.run("vacuum", "--older-than", "30d", "-n", "-o", "json")
		env.contains(out, `"dry_run":true`)
	})

	t.Run("requires older-than", func(t *testing.T) {
		_, err := env.runErr("vacuum")
		if err == nil {
			t.Fatal("expected error without --older-than")
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		out, err := env.runErr("vacuum", "--older-than", "soon")
		if err == nil {
			t.Fatal("expected error")
		}
		env.contains(out, "invalid duration")
	})

	t.Run("bad scope", func(t *testing.T) {
		out, err := env.runErr("vacuum", "--older-than", "1d", "--scope", "docs")
		if err == nil {
			t.Fatal("expected error")
		}
		env.contains(out, "invalid scope")
	})
}
