package runconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KeepsInsertionOrder(t *testing.T) {
	cfg := New(
		Entry{"model_name_or_path", "SenseTime/deformable-detr"},
		Entry{"learning_rate", 5e-5},
		Entry{"num_train_epochs", 30},
	)

	assert.Equal(t, []string{"model_name_or_path", "learning_rate", "num_train_epochs"}, cfg.Keys())
	assert.Equal(t, 3, cfg.Len())

	v, ok := cfg.Get("num_train_epochs")
	require.True(t, ok)
	assert.Equal(t, int64(30), v, "ints are normalized to int64")
}

func TestNew_RepeatedKeyKeepsFirstPosition(t *testing.T) {
	cfg := New(Entry{"a", 1}, Entry{"b", 2}, Entry{"a", 3})

	assert.Equal(t, []string{"a", "b"}, cfg.Keys())
	assert.Equal(t, "3", cfg.String("a"))
}

func TestWith_DoesNotMutateBase(t *testing.T) {
	base := New(Entry{"seed", "1"}, Entry{"output_dir", "base"})

	derived := base.With(
		Entry{"output_dir", "runs/x"},
		Entry{"use_lora", true},
	)

	assert.Equal(t, "base", base.String("output_dir"))
	_, ok := base.Get("use_lora")
	assert.False(t, ok)

	assert.Equal(t, []string{"seed", "output_dir", "use_lora"}, derived.Keys())
	assert.Equal(t, "runs/x", derived.String("output_dir"))
	assert.Equal(t, "true", derived.String("use_lora"))
}

func TestWith_SiblingsAreIndependent(t *testing.T) {
	base := New(Entry{"seed", "1"})

	a := base.With(Entry{"lora_rank", "8"})
	b := base.With(Entry{"dataset_name", "coco"})

	_, ok := a.Get("dataset_name")
	assert.False(t, ok)
	_, ok = b.Get("lora_rank")
	assert.False(t, ok)
}

func TestString_MissingKey(t *testing.T) {
	assert.Equal(t, "", New().String("nope"))
}

func TestEntriesAndMap(t *testing.T) {
	cfg := New(Entry{"b", "x"}, Entry{"a", false})

	entries := cfg.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{"b", "x"}, entries[0])
	assert.Equal(t, Entry{"a", false}, entries[1])

	m := cfg.Map()
	m["b"] = "changed"
	assert.Equal(t, "x", cfg.String("b"), "Map returns a copy")
}

func TestNormalize_Nested(t *testing.T) {
	cfg := New(Entry{"sizes", []any{1, 2.5}}, Entry{"extra", map[string]any{"n": 3}})

	v, _ := cfg.Get("sizes")
	assert.Equal(t, []any{int64(1), 2.5}, v)

	v, _ = cfg.Get("extra")
	assert.Equal(t, map[string]any{"n": int64(3)}, v)
}
