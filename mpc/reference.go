package mpc

// Reference window management: keeps the optimizer's per-step reference and
// weight rows tracking the vehicle's advance through the reference
// trajectory. The stored index only moves once every roll/backfill/taper
// operation has succeeded, so a failure never desynchronizes it from the
// workspace contents.

// referenceRowTolerance is how far a stored reference row may drift from the
// live trajectory before the consistency pass rewrites the window.
const referenceRowTolerance = 1e-9

// updateReferences advances the internal reference/weight state to
// currentIdx and reports whether this cycle is a cold start. On a cold start
// no rolling is performed; the caller must reset controls and force a
// forward-simulated initial guess.
func (c *Controller) updateReferences(currentIdx int) (coldStart bool, err error) {
	coldStart = currentIdx == 0
	if coldStart {
		return true, nil
	}

	advance := currentIdx - c.lastReferenceIndex
	if advance < 0 {
		return false, &IndexRegression{Last: c.lastReferenceIndex, Current: currentIdx}
	}
	c.prob.shiftForward(advance)

	maxPts := len(c.traj.Points)
	if maxPts-currentIdx >= c.dims.Horizon {
		c.backfillReference(currentIdx, advance)
	} else {
		// Trajectory ends inside the horizon: taper instead of pointing
		// tail rows at nonexistent reference data. The shift only made
		// rows below Horizon-advance current; real rows above that are
		// stale (a large index jump can leave the whole window stale)
		// and must be rewritten from the live trajectory before
		// weighting, or the terminal weight lands on a dead row.
		remaining := maxPts - currentIdx
		stale := c.dims.Horizon - advance
		if stale < 0 {
			stale = 0
		}
		for i := stale; i < remaining; i++ {
			c.prob.setReferenceRow(i, c.traj.Points[currentIdx+i])
			c.prob.setRowWeights(i, c.cfg.Optimization.Nominal)
		}
		c.applyTerminalWeights(remaining - 1)
		c.zeroNominalWeights(remaining, remaining+advance)
		c.prob.zeroHorizonTerminalWeights()
	}

	c.lastReferenceIndex = currentIdx
	return false, nil
}

// backfillReference fills the tail rows opened by the shift with the next
// trajectory points and restores nominal weights on them.
func (c *Controller) backfillReference(currentIdx, advance int) {
	n := c.dims.Horizon
	start := n - advance
	if start < 0 {
		start = 0
	}
	for i := start; i < n; i++ {
		c.prob.setReferenceRow(i, c.traj.Points[currentIdx+i])
		c.prob.setRowWeights(i, c.cfg.Optimization.Nominal)
	}
}

// applyTerminalWeights treats row idx, the last real reference row, as the
// terminal equilibrium target.
func (c *Controller) applyTerminalWeights(idx int) {
	if idx < 0 || idx >= c.dims.Horizon {
		return
	}
	c.prob.setRowWeights(idx, c.cfg.Optimization.Terminal)
}

// zeroNominalWeights removes the cost contribution of rows from through to
// (inclusive, clamped to the horizon).
func (c *Controller) zeroNominalWeights(from, to int) {
	if from < 0 {
		from = 0
	}
	if to > c.dims.Horizon-1 {
		to = c.dims.Horizon - 1
	}
	for i := from; i <= to; i++ {
		c.prob.zeroRowWeights(i)
	}
}

// ensureReferenceConsistency compares the active window rows against the
// live trajectory and rewrites any that deviate. This has to run every
// cycle: a replacement trajectory can arrive between cycles and is not
// observable through the index alone. Returns whether anything was
// rewritten, in which case the caller must re-initialize the solve.
func (c *Controller) ensureReferenceConsistency(currentIdx int) bool {
	horizon := len(c.traj.Points) - currentIdx
	if horizon > c.dims.Horizon {
		horizon = c.dims.Horizon
	}
	changed := false
	for i := 0; i < horizon; i++ {
		pt := c.traj.Points[currentIdx+i]
		if c.prob.referenceRowMatches(i, pt, referenceRowTolerance) {
			continue
		}
		c.prob.setReferenceRow(i, pt)
		c.prob.setRowWeights(i, c.cfg.Optimization.Nominal)
		changed = true
	}
	if changed && horizon == c.dims.Horizon {
		// Full window rewritten from real data: the horizon-end terminal
		// cost is meaningful again.
		c.prob.setHorizonTerminalWeights(c.cfg.Optimization.Terminal)
	}
	return changed
}
