package bot

import (
	"fmt"
	rand "math/rand/v2"
)

var botNames = []string{
	"Добрыня", "Иннокентий", "Святослав", "Любава", "Ярослав",
	"Забава", "Всеволод", "Млада", "Ратибор", "Василиса",
	"Мирослав", "Лада", "Богдан", "Снежана", "Ермолай",
}

// Name picks a bot display name not present in taken. Once the pool is
// exhausted names get a numeric suffix.
func Name(rng *rand.Rand, taken map[string]bool) string {
	var free []string
	for _, n := range botNames {
		if !taken[n] {
			free = append(free, n)
		}
	}
	if len(free) > 0 {
		return free[rng.IntN(len(free))]
	}
	for i := 2; ; i++ {
		for _, n := range botNames {
			candidate := fmt.Sprintf("%s %d", n, i)
			if !taken[candidate] {
				return candidate
			}
		}
	}
}
