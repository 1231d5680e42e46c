package room

// DefaultBlindLadder multiplies the base blinds at each escalation level.
var DefaultBlindLadder = []int{1, 2, 3, 4, 6, 8, 10, 15, 20, 30, 40, 60, 80, 100}

// BlindsAt returns the blinds for level, holding at the ladder's last
// tier. The big blind never drops below twice the small blind.
func BlindsAt(baseSmall, baseBig int, ladder []int, level int) (small, big int) {
	mult := 1
	if len(ladder) > 0 {
		mult = ladder[clamp(level, 0, len(ladder)-1)]
	}
	small = baseSmall * mult
	big = max(baseBig*mult, 2*small)
	return small, big
}
