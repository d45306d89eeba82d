package presentation

// Renderer is the widget layer. Every call is made on the loop goroutine.
type Renderer interface {
	// Sections replaces the whole menu of a flow.
	Sections(flow Flow, sections []Section)
	Status(status Status)
	Detail(title, body string)
	Show(screen Screen)
}

// Renderers fans calls out to several renderers in order.
type Renderers []Renderer

func (rs Renderers) Sections(flow Flow, sections []Section) {
	for _, r := range rs {
		r.Sections(flow, sections)
	}
}

func (rs Renderers) Status(status Status) {
	for _, r := range rs {
		r.Status(status)
	}
}

func (rs Renderers) Detail(title, body string) {
	for _, r := range rs {
		r.Detail(title, body)
	}
}

func (rs Renderers) Show(screen Screen) {
	for _, r := range rs {
		r.Show(screen)
	}
}
