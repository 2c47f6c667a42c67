package service

func SetCodeGenerator(s *Invitations, gen func() (string, error)) {
	s.newCode = gen
}
