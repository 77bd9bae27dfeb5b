// Package influxdb records climate telemetry in InfluxDB v2.
//
// Every state the bridge publishes is also written as a "climate" point
// tagged with the device and its modes. Writes are batched and
// non-blocking; failures surface through the SetOnError callback.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteClimateReading(influxdb.ClimateReading{DeviceID: "sim-ac-1", HVACMode: "cool", TargetTemperature: 24})
package influxdb
