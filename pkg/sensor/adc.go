package sensor

const (
	adcReference  = 3.3
	adcFullScale  = 65535
	adcVoltsAt27C = 0.706
	adcVoltsPerC  = 0.001721
)

// ADCToCelsius converts a raw 16-bit reading of an on-die temperature sensor
// (RP2040 style, 3.3 V reference) to degrees Celsius.
func ADCToCelsius(raw uint16) float64 {
	volts := float64(raw) * adcReference / adcFullScale
	return 27 - (volts-adcVoltsAt27C)/adcVoltsPerC
}
