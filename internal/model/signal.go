package model

import (
	"fmt"
	"time"
)

// Direction is the side of a trading signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Signal is a confirmed crossover event.
type Signal struct {
	Time      time.Time `json:"time"`
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
}

func (s Signal) String() string {
	return fmt.Sprintf("%s @ %.2f (%s)", s.Direction, s.Price, s.Time.Format("2006-01-02 15:04"))
}
