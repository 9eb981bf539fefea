package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// AllowedTables is the fixed set of tables the assistant may touch.
var AllowedTables = []string{
	"Empresa",
	"Planta",
	"Maquina",
	"Supervisor",
	"InformeServicio",
	"InformeVisita",
}

var (
	ErrUnknownTable    = errors.New("tabla no reconocida")
	ErrUnknownColumn   = errors.New("columna no reconocida")
	ErrMissingFilter   = errors.New("UPDATE requiere un filtro")
	ErrInvalidArgument = errors.New("argumento inválido")
)

// UnknownTableError carries the closest allowed table name, if any.
type UnknownTableError struct {
	Name       string
	Suggestion string
}

func (e *UnknownTableError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("tabla no reconocida: %q (¿quisiste decir %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("tabla no reconocida: %q", e.Name)
}

func (e *UnknownTableError) Is(target error) bool {
	return target == ErrUnknownTable
}

// ResolveTable returns the canonical spelling of an allowed table. Matching
// ignores case and underscores, so "informe_servicio" resolves to
// InformeServicio. Anything else is an *UnknownTableError.
func ResolveTable(name string) (string, error) {
	key := tableKey(name)
	for _, t := range AllowedTables {
		if tableKey(t) == key {
			return t, nil
		}
	}
	return "", &UnknownTableError{Name: name, Suggestion: SuggestTable(name)}
}

// SuggestTable returns the allowed table that fuzzy-matches name best, in
// either direction ("plant" within Planta, Empresa within "empresas").
func SuggestTable(name string) string {
	key := tableKey(name)
	if key == "" {
		return ""
	}

	keys := make([]string, len(AllowedTables))
	for i, t := range AllowedTables {
		keys[i] = tableKey(t)
	}

	best, bestScore := "", 0
	for _, m := range fuzzy.Find(key, keys) {
		if best == "" || m.Score > bestScore {
			best, bestScore = AllowedTables[m.Index], m.Score
		}
	}
	if best != "" {
		return best
	}

	for i, k := range keys {
		if matches := fuzzy.Find(k, []string{key}); len(matches) > 0 {
			if best == "" || matches[0].Score > bestScore {
				best, bestScore = AllowedTables[i], matches[0].Score
			}
		}
	}
	return best
}

func tableKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
}
