// Handler wiring.
//
// Handlers groups the HTTP endpoints for sessions, documents, plans, study
// stage, and chats. It depends on abstract service interfaces to keep
// transport concerns separate from business logic; the concrete services
// are injected by the router.
package handlers

// Handlers groups HTTP endpoints for the study API.
type Handlers struct {
	sessionSvc SessionService
	docSvc     DocumentService
	planSvc    PlanService
	studySvc   StudyService
	chatSvc    ChatService
}

// New constructs a Handlers instance bound to the given services.
func New(sessionSvc SessionService, docSvc DocumentService, planSvc PlanService, studySvc StudyService, chatSvc ChatService) *Handlers {
	return &Handlers{
		sessionSvc: sessionSvc,
		docSvc:     docSvc,
		planSvc:    planSvc,
		studySvc:   studySvc,
		chatSvc:    chatSvc,
	}
}
