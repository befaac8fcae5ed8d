package scheduler

import "time"

func (p *RevocationPurger) SetClock(now func() time.Time) { p.now = now }
