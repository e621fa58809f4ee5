package evt

// Wifi notification codes as numbered by the module's host interface.
const (
	CurrentRSSICode      = 0x04
	ProvisionInfoCode    = 0x09
	ScanDoneCode         = 0x12
	ScanResultCode       = 0x13
	ConnStateChangedCode = 0x2C
	DHCPConfCode         = 0x32
)

// Connection states carried by ConnStateChanged.
const (
	StateDisconnected = 0x00
	StateConnected    = 0x01
)

// Socket notification codes.
const (
	SocketBindCode       = 1
	SocketListenCode     = 2
	SocketDNSResolveCode = 3
	SocketAcceptCode     = 4
	SocketConnectCode    = 5
	SocketRecvCode       = 6
	SocketSendCode       = 7
	SocketSendToCode     = 8
	SocketRecvFromCode   = 9
)

type ConnStateChanged []byte
type DHCPConf []byte
type CurrentRSSI []byte
type ProvisionInfo []byte
type ScanDone []byte
type ScanResult []byte

type SocketStatus []byte
type SocketAccept []byte
type SocketConnect []byte
type SocketRecv []byte

// DNSResolve is a host name lookup result.
type DNSResolve []byte
