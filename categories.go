package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

// Category is one starting prompt for round zero.
type Category struct {
	ID         int    `json:"id"`
	Prompt     string `json:"prompt"`
	Difficulty string `json:"difficulty"`
}

func loadCategories(path string) ([]Category, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories %s: %w", path, err)
	}

	var categories []Category
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("parse categories %s: %w", path, err)
	}

	if len(categories) == 0 {
		return nil, fmt.Errorf("categories %s: empty list", path)
	}

	return categories, nil
}

func randomFrom[T any](list []T) T {
	return list[rand.Intn(len(list))]
}
