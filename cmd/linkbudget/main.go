// Command linkbudget prints the static budget for a single link
// without running a simulation.
package main

import (
	"flag"
	"fmt"

	"github.com/signalsfoundry/hapnet-simulator/core"
)

func main() {
	distance := flag.Float64("distance", 35786000, "link distance (m)")
	frequency := flag.Float64("frequency", 20e9, "carrier frequency (Hz)")
	txPower := flag.Float64("tx-power", 50, "transmit power (dBm)")
	txGain := flag.Float64("tx-gain", 50, "transmit antenna gain (dBi)")
	rxGain := flag.Float64("rx-gain", 45, "receive antenna gain (dBi)")
	altitude := flag.Float64("altitude", 20000, "receiver altitude (m); atmospheric loss covers the layer above it")
	belowPlatform := flag.Bool("below", false, "receiver below the atmosphere instead of above it")
	rain := flag.Float64("rain", 3.0, "rain attenuation (dB/km)")
	oxygen := flag.Float64("oxygen", 0.1, "oxygen absorption (dB/km)")
	vapor := flag.Float64("vapor", 0.05, "water-vapor absorption (dB/km)")
	flag.Parse()

	atmo := core.DefaultAtmosphere()
	atmo.RainDBPerKm = *rain
	atmo.OxygenDBPerKm = *oxygen
	atmo.VaporDBPerKm = *vapor

	var loss core.AtmosphericLoss
	if *belowPlatform {
		loss = atmo.LossBelow(*altitude)
	} else {
		loss = atmo.LossAbove(*altitude)
	}

	budget := core.LinkBudgetParams{
		DistanceM:   *distance,
		FrequencyHz: *frequency,
		TxPowerDBm:  *txPower,
		TxGainDBi:   *txGain,
		RxGainDBi:   *rxGain,
		Atmospheric: loss,
	}.Compute()

	fmt.Println("=== Link Budget ===")
	fmt.Printf("Distance:            %.0f m\n", *distance)
	fmt.Printf("Frequency:           %.3f GHz\n", *frequency/1e9)
	fmt.Printf("Free-space path loss: %.2f dB\n", budget.FSPLdB)
	fmt.Printf("Rain attenuation:     %.2f dB\n", loss.RainDB)
	fmt.Printf("Oxygen absorption:    %.2f dB\n", loss.GasDB)
	fmt.Printf("Water vapor:          %.2f dB\n", loss.VaporDB)
	fmt.Printf("Atmospheric total:    %.2f dB\n", loss.TotalDB())
	fmt.Printf("EIRP:                 %.2f dBW\n", budget.EIRPdBW)
	fmt.Printf("Received power:       %.2f dBW (%.2f dBm)\n",
		budget.ReceivedPowerDBW, budget.ReceivedPowerDBW+30)
}
