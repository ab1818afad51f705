package sim

// WeaponStats is the compile-time-constant per-weapon stats table (spec
// §4.3). Keyed by WeaponType, mirroring the teacher's map[string]Weapon
// idiom but addressed by the typed enum instead of a string id.
type WeaponStats struct {
	Damage       int
	Speed        float64
	Cooldown     int // ticks
	Lifetime     int // ticks
	Ammo         int
	Pellets      int
	SpreadDeg    float64
	SplashRadius float64
	SplashDamage int
}

var weaponTable = map[WeaponType]WeaponStats{
	WeaponPistol:  {Damage: 10, Speed: 14, Cooldown: 10, Lifetime: 90, Ammo: 15, Pellets: 1},
	WeaponShotgun: {Damage: 6, Speed: 12, Cooldown: 30, Lifetime: 40, Ammo: 6, Pellets: 6, SpreadDeg: 18},
	WeaponSniper:  {Damage: 35, Speed: 22, Cooldown: 50, Lifetime: 120, Ammo: 4, Pellets: 1},
	WeaponRocket:  {Damage: 25, Speed: 10, Cooldown: 40, Lifetime: 100, Ammo: 3, Pellets: 1, SplashRadius: 56, SplashDamage: 20},
	WeaponSMG:     {Damage: 5, Speed: 13, Cooldown: 4, Lifetime: 70, Ammo: 30, Pellets: 1, SpreadDeg: 4},
}

// GetWeaponStats returns the stats for w, defaulting to an inert
// zero-value entry for WeaponNone.
func GetWeaponStats(w WeaponType) WeaponStats {
	return weaponTable[w]
}
