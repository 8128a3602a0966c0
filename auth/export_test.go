package auth

import "time"

func (svc *Service) SetNow(now func() time.Time) {
	svc.now = now
}
