package ipmi

// BootOverride is the boot source override as exchanged in chassis boot
// option parameter 5.
type BootOverride struct {
	Enabled string // "Disabled", "Once", "Continuous"
	Target  string // "None", "Pxe", "Hdd", "Cd", "BiosSetup"
	Mode    string // "UEFI", "Legacy"
}

// BMCInterface is the handler contract the IPMI engine drives. Every
// power handler reports its outcome as a completion code — never a Go
// error; the engine serializes the code onto the wire as-is. GetPowerState
// additionally returns the numeric run state (0=off, 1=on), which is only
// meaningful when the code is CompletionCodeOK.
type BMCInterface interface {
	GetPowerState() (uint8, CompletionCode)
	PowerOn() CompletionCode
	PowerOff() CompletionCode
	PowerCycle() CompletionCode
	PowerReset() CompletionCode
	PowerShutdown() CompletionCode

	GetBootOverride() BootOverride
	SetBootOverride(override BootOverride) CompletionCode
}

// Numeric run states returned by GetPowerState.
const (
	PowerStateOff uint8 = 0
	PowerStateOn  uint8 = 1
)

// RMCP constants
const (
	RMCPVersion1  = 0x06
	RMCPClassASF  = 0x06
	RMCPClassIPMI = 0x07
)

// Authentication types
const (
	AuthTypeNone     = 0x00
	AuthTypeMD2      = 0x01
	AuthTypeMD5      = 0x02
	AuthTypePassword = 0x04
	AuthTypeOEM      = 0x05
	AuthTypeRMCPPlus = 0x06
)

// IPMI Network Functions
const (
	NetFnChassis         = 0x00
	NetFnChassisResponse = 0x01
	NetFnApp             = 0x06
	NetFnAppResponse     = 0x07
	NetFnTransport       = 0x0C
)

// IPMI App Commands
const (
	CmdGetDeviceID                = 0x01
	CmdGetChannelAuthCapabilities = 0x38
	CmdGetSessionChallenge        = 0x39
	CmdActivateSession            = 0x3A
	CmdSetSessionPrivilege        = 0x3B
	CmdCloseSession               = 0x3C
	CmdGetChannelAccess           = 0x41
	CmdGetChannelInfo             = 0x42
	CmdSetChannelAccess           = 0x40
	CmdSetUserAccess              = 0x43
	CmdGetUserAccess              = 0x44
	CmdSetUserName                = 0x45
	CmdGetUserName                = 0x46
	CmdSetUserPassword            = 0x47
)

// IPMI Transport Commands
const (
	CmdSetLANConfigParams = 0x01
	CmdGetLANConfigParams = 0x02
)

// IPMI Chassis Commands
const (
	CmdGetChassisStatus = 0x01
	CmdChassisControl   = 0x02
	CmdChassisIdentify  = 0x04
	CmdSetBootOptions   = 0x08
	CmdGetBootOptions   = 0x09
)

// Chassis Control values
const (
	ChassisControlPowerDown  = 0x00
	ChassisControlPowerUp    = 0x01
	ChassisControlPowerCycle = 0x02
	ChassisControlHardReset  = 0x03
	ChassisControlPulse      = 0x04
	ChassisControlSoftOff    = 0x05
)

// RAKP authentication algorithms
const (
	AuthAlgorithmNone       = 0x00
	AuthAlgorithmHMACSHA1   = 0x01
	AuthAlgorithmHMACSHA256 = 0x03
)

// RMCP+ integrity algorithms
const (
	IntegrityAlgorithmNone           = 0x00
	IntegrityAlgorithmHMACSHA1_96    = 0x01
	IntegrityAlgorithmHMACSHA256_128 = 0x04
)

// RMCP+ confidentiality algorithms
const (
	ConfAlgorithmNone      = 0x00
	ConfAlgorithmAESCBC128 = 0x01
)

// RMCP+ and RAKP message status codes
const (
	OpenSessionStatusNoErrors                  = 0x00
	OpenSessionStatusInvalidAuthAlgorithm      = 0x04
	OpenSessionStatusInvalidIntegrityAlgorithm = 0x05
	OpenSessionStatusInvalidConfAlgorithm      = 0x10
)

// RMCP+ Payload Types
const (
	PayloadTypeIPMI                = 0x00
	PayloadTypeSOL                 = 0x01
	PayloadTypeOpenSessionRequest  = 0x10
	PayloadTypeOpenSessionResponse = 0x11
	PayloadTypeRAKPMessage1        = 0x12
	PayloadTypeRAKPMessage2        = 0x13
	PayloadTypeRAKPMessage3        = 0x14
	PayloadTypeRAKPMessage4        = 0x15
)

// CompletionCode represents an IPMI completion code
type CompletionCode uint8

const (
	CompletionCodeOK                  CompletionCode = 0x00
	CompletionCodeNodeBusy            CompletionCode = 0xC0
	CompletionCodeInvalidCommand      CompletionCode = 0xC1
	CompletionCodeInvalidForLUN       CompletionCode = 0xC2
	CompletionCodeTimeout             CompletionCode = 0xC3
	CompletionCodeOutOfSpace          CompletionCode = 0xC4
	CompletionCodeParameterOutOfRange CompletionCode = 0xC9
	CompletionCodeInvalidField        CompletionCode = 0xCC
	CompletionCodeNotSupportedInState CompletionCode = 0xD5
	CompletionCodeUnspecified         CompletionCode = 0xFF
)
