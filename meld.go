package main

// filterPromptRepetitions removes any guess whose stem equals the stem of
// the current prompt. Echoing the prompt back is not convergence, and
// these guesses are disqualified from scoring and meld detection.
func filterPromptRepetitions(guesses map[string]string, prompt string) map[string]string {
	promptStem := stem(prompt)

	filtered := make(map[string]string, len(guesses))
	for id, guess := range guesses {
		if stem(guess) != promptStem {
			filtered[id] = guess
		}
	}

	return filtered
}

// detectMeld reports whether the valid guesses constitute full
// convergence: at least two guesses, all sharing the same stem.
func detectMeld(validGuesses map[string]string) bool {
	if len(validGuesses) < 2 {
		return false
	}

	first := ""
	seen := false
	for _, guess := range validGuesses {
		s := stem(guess)
		if !seen {
			first = s
			seen = true
		} else if s != first {
			return false
		}
	}

	return true
}
