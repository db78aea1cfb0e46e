package redfish

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tjst-t/vbox-bmc/internal/machine"
)

// MachineInterface defines what the Redfish server needs from the machine layer
type MachineInterface interface {
	GetPowerState() (machine.PowerState, error)
	Reset(resetType string) error
	GetBootOverride() machine.BootOverride
	SetBootOverride(override machine.BootOverride) error
	InsertMedia(image string) error
	EjectMedia() error
}

// Server is the Redfish HTTP server
type Server struct {
	router       *mux.Router
	machine      MachineInterface
	user         string
	pass         string
	currentMedia string
	log          *slog.Logger
}

// NewServer creates a new Redfish server
func NewServer(m MachineInterface, user, pass string, log *slog.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		machine: m,
		user:    user,
		pass:    pass,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Apply middleware
	s.router.Use(s.trailingSlashMiddleware)
	if s.user != "" && s.pass != "" {
		s.router.Use(s.basicAuthMiddleware)
	}

	// Service Root
	s.router.HandleFunc("/redfish/v1", s.handleServiceRoot).Methods("GET")
	s.router.HandleFunc("/redfish/v1/", s.handleServiceRoot).Methods("GET")

	// Systems
	s.router.HandleFunc("/redfish/v1/Systems", s.handleSystemCollection).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Systems/", s.handleSystemCollection).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Systems/{id}", s.handleGetSystem).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Systems/{id}/", s.handleGetSystem).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Systems/{id}", s.handlePatchSystem).Methods("PATCH")
	s.router.HandleFunc("/redfish/v1/Systems/{id}/", s.handlePatchSystem).Methods("PATCH")

	// Actions
	s.router.HandleFunc("/redfish/v1/Systems/{id}/Actions/ComputerSystem.Reset", s.handleResetAction).Methods("POST")
	s.router.HandleFunc("/redfish/v1/Systems/{id}/Actions/ComputerSystem.Reset/", s.handleResetAction).Methods("POST")

	// Chassis
	s.router.HandleFunc("/redfish/v1/Chassis", s.handleChassisCollection).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Chassis/{id}", s.handleGetChassis).Methods("GET")

	// Managers and virtual media
	s.router.HandleFunc("/redfish/v1/Managers", s.handleManagerCollection).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Managers/{id}", s.handleGetManager).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Managers/{id}/VirtualMedia", s.handleVirtualMediaCollection).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Managers/{id}/VirtualMedia/{media}", s.handleGetVirtualMedia).Methods("GET")
	s.router.HandleFunc("/redfish/v1/Managers/{id}/VirtualMedia/{media}/Actions/VirtualMedia.InsertMedia", s.handleInsertMedia).Methods("POST")
	s.router.HandleFunc("/redfish/v1/Managers/{id}/VirtualMedia/{media}/Actions/VirtualMedia.EjectMedia", s.handleEjectMedia).Methods("POST")
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
