// Package influxdb records one printer's status history in InfluxDB.
//
// Each published status becomes a printer_status point tagged by serial and
// state; consecutive identical statuses are written once. Job start and
// finish become printer_job points. Writes go through the batched,
// non-blocking write API of influxdb-client-go v2.
//
// # Usage
//
//	rec, err := influxdb.Open(ctx, cfg.InfluxDB, cfg.Printer.Serial)
//	if errors.Is(err, influxdb.ErrHistoryDisabled) {
//	    // History is optional.
//	}
//	defer rec.Close()
//
//	rec.SetOnError(func(err error) {
//	    log.Warn("influx write failed", "error", err)
//	})
//	printer.OnStatus(rec.RecordStatus)
//	printer.OnAnyJob(rec.RecordJob)
package influxdb
