package wave

import (
	"math"

	"github.com/annel0/arena-core/internal/config"
)

// Duration длительность волны: ступенчатая функция по номеру волны
func Duration(cfg *config.WaveConfig, wave int) float64 {
	for _, tier := range cfg.Durations {
		if tier.UntilWave == 0 || wave <= tier.UntilWave {
			return tier.Seconds
		}
	}
	if n := len(cfg.Durations); n > 0 {
		return cfg.Durations[n-1].Seconds
	}
	return 0
}

// SpawnInterval секунд между тиками спавна, убывает до минимума
func SpawnInterval(cfg *config.WaveConfig, wave int) float64 {
	return math.Max(cfg.SpawnIntervalMin, cfg.SpawnIntervalBase-cfg.SpawnIntervalStep*float64(wave-1))
}

// EnemiesPerTick врагов за тик спавна, растёт до максимума
func EnemiesPerTick(cfg *config.WaveConfig, wave int) int {
	n := cfg.PerTickBase
	if cfg.PerTickEvery > 0 {
		n += (wave - 1) / cfg.PerTickEvery
	}
	if cfg.PerTickMax > 0 && n > cfg.PerTickMax {
		n = cfg.PerTickMax
	}
	return n
}

// IsBossWave каждая boss_every-я волна
func IsBossWave(cfg *config.WaveConfig, wave int) bool {
	return cfg.BossEvery > 0 && wave > 0 && wave%cfg.BossEvery == 0 && len(cfg.BossRotation) > 0
}

// BossAppearance порядковый номер боя с боссом k = ⌊wave/boss_every⌋
func BossAppearance(cfg *config.WaveConfig, wave int) int {
	if cfg.BossEvery <= 0 {
		return 0
	}
	return wave / cfg.BossEvery
}

// BossType архетип босса: ротация по (k−1) mod len
func BossType(cfg *config.WaveConfig, wave int) string {
	k := BossAppearance(cfg, wave)
	if k < 1 || len(cfg.BossRotation) == 0 {
		return ""
	}
	return cfg.BossRotation[(k-1)%len(cfg.BossRotation)]
}

// ExponentialScale общий экспоненциальный множитель base^max(0, wave−start)
func ExponentialScale(cfg *config.WaveConfig, wave int) float64 {
	return math.Pow(cfg.ExponentialBase, math.Max(0, float64(wave-cfg.ScalingStartWave)))
}

// BossMultipliers множители hp и урона босса на волне wave:
// (1+(k−1)×perWave) × base^max(0, wave−start)
func BossMultipliers(cfg *config.WaveConfig, boss *config.EnemyConfig, wave int) (hp, damage float64) {
	k := float64(BossAppearance(cfg, wave))
	exp := ExponentialScale(cfg, wave)
	hp = (1 + (k-1)*boss.HPScalePerWave) * exp
	damage = (1 + (k-1)*boss.DamageScalePerWave) * exp
	return hp, damage
}
