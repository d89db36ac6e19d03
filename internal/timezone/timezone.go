package timezone

import "time"

const DefaultTimezone = "America/Sao_Paulo"

// Clock retorna o instante atual. Use cases recebem um Clock para que os
// testes consigam fixar o tempo.
type Clock func() time.Time

var current = DefaultTimezone

// SetDefault troca o timezone usado por Now. Valores inválidos são ignorados.
func SetDefault(tz string) {
	if IsValid(tz) {
		current = tz
	}
}

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Current é o timezone padrão da aplicação.
func Current() *time.Location {
	return Location(current)
}

func Now() time.Time {
	return time.Now().In(Location(current))
}

func NowIn(tz string) time.Time {
	return time.Now().In(Location(tz))
}

// Fixed devolve um Clock parado em t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
