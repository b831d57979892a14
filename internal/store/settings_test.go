package store

import (
	"errors"
	"testing"
)

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get(KeyDefaultColor); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := repo.Set(KeyDefaultColor, "blue"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(KeyDefaultColor, "green"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if got, _ := repo.Get(KeyDefaultColor); got != "green" {
		t.Errorf("Get() = %q, want green", got)
	}

	if err := repo.SetInt(KeyDefaultThickness, 33); err != nil {
		t.Fatalf("SetInt() error = %v", err)
	}
	if got, err := repo.GetInt(KeyDefaultThickness); err != nil || got != 33 {
		t.Errorf("GetInt() = %d, %v; want 33", got, err)
	}

	repo.Set("bad_int", "many")
	if _, err := repo.GetInt("bad_int"); err == nil {
		t.Error("GetInt() of a non-number should fail")
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 3 || all[KeyDefaultColor] != "green" {
		t.Errorf("All() = %v", all)
	}

	if err := repo.Delete("bad_int"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := repo.Delete("bad_int"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
