package session

import (
	"github.com/srg/remotte/internal/capability"
	"github.com/srg/remotte/internal/sensor"
	"github.com/srg/remotte/internal/sequencer"
)

// configureCommands enables every sensor in kinds, then turns on their
// notifications. The altimeter is put into calibration mode and its
// calibration blob is read; it is switched to normal mode once the blob arrives.
func configureCommands(table *capability.Table, cfg sensor.SensorConfiguration, kinds []sensor.Kind) []sequencer.Command {
	var cmds []sequencer.Command

	for _, k := range kinds {
		settings, _ := cfg.Settings(k)
		p, err := table.Sensor(k)
		if err != nil || p.Config == nil || !settings.Enabled {
			continue
		}
		if k == sensor.Altimeter {
			calSvc, calChar := table.Calibration()
			cmds = append(cmds,
				sequencer.WriteCharacteristic(p.Service, p.Config, capability.PayloadCalibrationMode),
				sequencer.ReadCharacteristic(calSvc, calChar),
			)
			continue
		}
		cmds = append(cmds, sequencer.WriteCharacteristic(p.Service, p.Config, p.Enable))
	}

	for _, k := range kinds {
		settings, _ := cfg.Settings(k)
		p, err := table.Sensor(k)
		if err != nil || !settings.Notify {
			continue
		}
		cmds = append(cmds, sequencer.WriteDescriptor(p.Service, p.Data, capability.ClientCharacteristicConfig, capability.PayloadNotifyOn))
		if p.Period == nil {
			continue
		}
		period, err := settings.PeriodByte()
		if err != nil {
			continue
		}
		cmds = append(cmds, sequencer.WriteCharacteristic(p.Service, p.Period, []byte{period}))
	}

	return cmds
}

// altimeterEnableCommand switches the altimeter out of calibration mode.
func altimeterEnableCommand(table *capability.Table) (sequencer.Command, bool) {
	p, err := table.Sensor(sensor.Altimeter)
	if err != nil {
		return sequencer.Command{}, false
	}
	return sequencer.WriteCharacteristic(p.Service, p.Config, p.Enable), true
}

// teardownCommands turns notifications off and then disables every sensor in kinds.
func teardownCommands(table *capability.Table, cfg sensor.SensorConfiguration, kinds []sensor.Kind) []sequencer.Command {
	var cmds []sequencer.Command

	for _, k := range kinds {
		settings, _ := cfg.Settings(k)
		p, err := table.Sensor(k)
		if err != nil || !settings.Notify {
			continue
		}
		cmds = append(cmds, sequencer.WriteDescriptor(p.Service, p.Data, capability.ClientCharacteristicConfig, capability.PayloadNotifyOff))
	}

	for _, k := range kinds {
		settings, _ := cfg.Settings(k)
		p, err := table.Sensor(k)
		if err != nil || p.Config == nil || !settings.Enabled {
			continue
		}
		cmds = append(cmds, sequencer.WriteCharacteristic(p.Service, p.Config, capability.PayloadDisable))
	}

	return cmds
}
