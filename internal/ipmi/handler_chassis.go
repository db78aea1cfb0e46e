package ipmi

// handleChassisCommand handles Chassis network function commands
func handleChassisCommand(msg *IPMIMessage, b BMCInterface) (CompletionCode, []byte) {
	switch msg.Command {
	case CmdGetChassisStatus:
		return handleGetChassisStatus(b)
	case CmdChassisControl:
		return handleChassisControl(msg.Data, b)
	case CmdChassisIdentify:
		return handleChassisIdentify()
	case CmdSetBootOptions:
		return handleSetBootOptions(msg.Data, b)
	case CmdGetBootOptions:
		return handleGetBootOptions(msg.Data, b)
	default:
		return CompletionCodeInvalidCommand, nil
	}
}

func handleGetChassisStatus(b BMCInterface) (CompletionCode, []byte) {
	state, code := b.GetPowerState()
	if code != CompletionCodeOK {
		return code, nil
	}

	var powerByte byte
	if state == PowerStateOn {
		powerByte = 0x01 // bit 0 = power on
	}

	data := []byte{
		powerByte, // Current Power State
		0x00,      // Last Power Event
		0x00,      // Misc Chassis State
		0x00,      // Front Panel Button
	}
	return CompletionCodeOK, data
}

func handleChassisControl(reqData []byte, b BMCInterface) (CompletionCode, []byte) {
	if len(reqData) < 1 {
		return CompletionCodeInvalidField, nil
	}

	switch reqData[0] {
	case ChassisControlPowerDown:
		return b.PowerOff(), nil
	case ChassisControlPowerUp:
		return b.PowerOn(), nil
	case ChassisControlPowerCycle:
		return b.PowerCycle(), nil
	case ChassisControlHardReset:
		return b.PowerReset(), nil
	case ChassisControlSoftOff:
		return b.PowerShutdown(), nil
	default:
		// Diagnostic pulse and anything else we don't implement
		return CompletionCodeInvalidField, nil
	}
}

func handleChassisIdentify() (CompletionCode, []byte) {
	// No panel to blink; acknowledge and move on
	return CompletionCodeOK, nil
}

func handleSetBootOptions(reqData []byte, b BMCInterface) (CompletionCode, []byte) {
	if len(reqData) < 1 {
		return CompletionCodeInvalidField, nil
	}

	paramSelector := reqData[0] & 0x7F

	switch paramSelector {
	case 5: // Boot flags
		if len(reqData) < 6 {
			return CompletionCodeInvalidField, nil
		}
		bootFlags := reqData[1:]
		override := BootOverride{
			Mode: "UEFI",
		}

		// Byte 1, bit 7: valid
		// Byte 2, bits 5:2: boot device
		if bootFlags[0]&0x80 != 0 {
			override.Enabled = "Once"
		} else {
			override.Enabled = "Disabled"
		}

		deviceBits := (bootFlags[1] >> 2) & 0x0F
		switch deviceBits {
		case 0x00:
			override.Target = "None"
		case 0x01:
			override.Target = "Pxe"
		case 0x02:
			override.Target = "Hdd"
		case 0x05:
			override.Target = "Cd"
		case 0x06:
			override.Target = "BiosSetup"
		default:
			override.Target = "None"
		}

		// Byte 1, bit 5: UEFI
		if bootFlags[0]&0x20 != 0 {
			override.Mode = "UEFI"
		} else {
			override.Mode = "Legacy"
		}

		return b.SetBootOverride(override), nil

	default:
		// Accept but ignore other parameters
		return CompletionCodeOK, nil
	}
}

func handleGetBootOptions(reqData []byte, b BMCInterface) (CompletionCode, []byte) {
	if len(reqData) < 1 {
		return CompletionCodeInvalidField, nil
	}

	paramSelector := reqData[0] & 0x7F

	switch paramSelector {
	case 5: // Boot flags
		boot := b.GetBootOverride()
		data := make([]byte, 5)

		// Byte 0: parameter version (1)
		data[0] = 0x01

		// Byte 1: valid flag + UEFI flag
		if boot.Enabled != "Disabled" {
			data[1] = 0x80 // valid
		}
		if boot.Mode == "UEFI" {
			data[1] |= 0x20 // UEFI
		}

		// Byte 2: boot device
		var deviceBits byte
		switch boot.Target {
		case "Pxe":
			deviceBits = 0x01
		case "Hdd":
			deviceBits = 0x02
		case "Cd":
			deviceBits = 0x05
		case "BiosSetup":
			deviceBits = 0x06
		default:
			deviceBits = 0x00
		}
		data[2] = deviceBits << 2

		return CompletionCodeOK, data

	default:
		return CompletionCodeParameterOutOfRange, nil
	}
}
