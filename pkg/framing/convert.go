package framing

// Convert builds a ResultFunc that decodes each packet into T before handing
// it to handle. When decode fails, onErr decides whether the packet is
// consumed; a nil onErr rejects it.
//
//	fn := framing.Convert(parseFix, store.Save, nil)
//	f.Analyse(key, chunk, fn)
func Convert[T any](
	decode func(key string, packet []byte) (T, error),
	handle func(key string, v T) bool,
	onErr func(key string, packet []byte, err error) bool,
) ResultFunc {
	return func(key string, packet []byte) bool {
		v, err := decode(key, packet)
		if err != nil {
			if onErr == nil {
				return false
			}
			return onErr(key, packet, err)
		}
		return handle(key, v)
	}
}
