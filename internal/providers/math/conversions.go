package math

import (
	"github.com/GriffinCanCode/sandbox/internal/types"
)

func conversionOps() []op {
	return []op{
		convert("math.celsiusToFahrenheit", "Celsius to Fahrenheit", "celsius", func(c float64) float64 { return c*9/5 + 32 }),
		convert("math.fahrenheitToCelsius", "Fahrenheit to Celsius", "fahrenheit", func(f float64) float64 { return (f - 32) * 5 / 9 }),
		convert("math.kilometersToMiles", "Kilometers to Miles", "kilometers", func(km float64) float64 { return km * 0.621371 }),
		convert("math.milesToKilometers", "Miles to Kilometers", "miles", func(mi float64) float64 { return mi / 0.621371 }),
		convert("math.metersToFeet", "Meters to Feet", "meters", func(m float64) float64 { return m * 3.28084 }),
		convert("math.feetToMeters", "Feet to Meters", "feet", func(ft float64) float64 { return ft / 3.28084 }),
		convert("math.kilogramsToPounds", "Kilograms to Pounds", "kilograms", func(kg float64) float64 { return kg * 2.20462 }),
		convert("math.poundsToKilograms", "Pounds to Kilograms", "pounds", func(lb float64) float64 { return lb / 2.20462 }),
	}
}

func convert(id, name, param string, f func(float64) float64) op {
	return op{
		tool: types.Tool{
			ID:          id,
			Name:        name,
			Description: name,
			Parameters:  []types.Parameter{number(param, "Value to convert")},
			Returns:     "number",
		},
		run: func(params map[string]any) (*types.Result, error) {
			x, err := GetNumber(params, param)
			if err != nil {
				return Failure("%v", err)
			}
			return Success(f(x))
		},
	}
}
