package usecase

import "time"

func (u *DocumentUsecase) SetClock(now func() time.Time) { u.now = now }
