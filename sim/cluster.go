package sim

// Cluster is a batch of a wave's agents travelling as a single point
// until it gets close enough to spawn them.
type Cluster struct {
	ID         int
	Pos        Vec2
	Speed      float64
	Objective  bool // travels toward the objective; false means the player
	TypeName   string
	Planned    int
	NumEnemies int // not yet spawned plus spawned and alive
	Spawned    bool
	Boss       bool
}

// advance moves the cluster toward dest without overshooting
func (c *Cluster) advance(dest Vec2, dt float64) {
	d := Distance(c.Pos, dest)
	step := c.Speed * dt
	if step >= d {
		c.Pos = dest
		return
	}
	c.Pos = c.Pos.Add(dest.Sub(c.Pos).Scale(step / d))
}
