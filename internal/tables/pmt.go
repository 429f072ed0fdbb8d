package tables

// Elementary stream types the PMT classifier recognizes directly.
const (
	streamTypeMPEG1Video = 0x01
	streamTypeMPEG2Video = 0x02
	streamTypeMPEG1Audio = 0x03
	streamTypeMPEG2Audio = 0x04
	streamTypeMPEG2AAC   = 0x0f
	streamTypeMPEG4Video = 0x10
	streamTypeMPEG4AAC   = 0x11
	streamTypeAVC        = 0x1b
	streamTypePESPrivate = 0x06
	streamTypeUserPriv   = 0x81
	streamTypeVC1        = 0xea
)

// Descriptor tags consulted when a PES-private/user-private/VC1 stream's
// type alone doesn't say whether it's audio or video.
const (
	descMPEG4Audio       = 0x1c
	descMPEG2AACAudio    = 0x2b
	descAACAudio         = 0x7c
	descAC3Audio         = 0x6a
	descDTSAudio         = 0x7b
	descAudioStream      = 0x03
	descAVC              = 0x28
	descMPEG4Video       = 0x1b
	descVideoStream      = 0x02
	descRegistration     = 0x05
	descCA               = 0x09
)

// registration_descriptor format identifiers that disambiguate a
// PES-private stream by 4-byte tag instead of a dedicated descriptor.
const (
	formatDTS1 = 0x44545331
	formatDTS2 = 0x44545332
	formatDTS3 = 0x44545333
	formatAC3  = 0x41432d33 // "AC-3"
	formatBSSD = 0x42535344 // "BSSD" (LPCM)
	formatVC1  = 0x56432d31 // "VC-1"
)

// Classify inspects a decoded PMT and returns the derived service type
// (dvbid.ServiceTypeVideo/Audio/Data) and whether any elementary stream, or
// the program itself, carries a CA (scrambling) descriptor.
//
// A stream is classified by its stream_type first; PES-private/user-private/
// VC-1 streams fall through to their descriptor loop to disambiguate audio
// vs. video. Video wins over audio, which wins over data, applied once
// after every stream has been inspected.
func Classify(pmt *PMT) (serviceType int, scrambled bool) {
	haveVideo, haveAudio := false, false

	for _, d := range pmt.Descriptors {
		if d.Tag == descCA {
			scrambled = true
		}
	}

	for _, es := range pmt.Streams {
		isVideo, isAudio := false, false
		forcedVideo, forcedAudio := false, false

		switch es.StreamType {
		case streamTypeAVC, streamTypeMPEG4Video, streamTypeMPEG1Video, streamTypeMPEG2Video:
			isVideo, forcedVideo = true, true
		case streamTypeMPEG1Audio, streamTypeMPEG2Audio, streamTypeMPEG2AAC, streamTypeMPEG4AAC:
			isAudio, forcedAudio = true, true
		}

		switch es.StreamType {
		case streamTypePESPrivate, streamTypeUserPriv, streamTypeVC1,
			streamTypeAVC, streamTypeMPEG4Video, streamTypeMPEG1Video, streamTypeMPEG2Video,
			streamTypeMPEG1Audio, streamTypeMPEG2Audio, streamTypeMPEG2AAC, streamTypeMPEG4AAC:
			for _, desc := range es.Descriptors {
				if !forcedVideo && !forcedAudio {
					switch desc.Tag {
					case descMPEG4Audio, descMPEG2AACAudio, descAACAudio, descAC3Audio, descDTSAudio, descAudioStream:
						isAudio = true
					case descAVC, descMPEG4Video, descVideoStream:
						isVideo = true
					case descRegistration:
						switch desc.RegistrationFormat {
						case formatDTS1, formatDTS2, formatDTS3, formatAC3, formatBSSD:
							isAudio = true
						case formatVC1:
							isVideo = true
						}
					}
				}
				if desc.Tag == descCA {
					scrambled = true
				}
			}
		}

		if isVideo {
			haveVideo = true
		} else if isAudio {
			haveAudio = true
		}
	}

	switch {
	case haveVideo:
		serviceType = 1
	case haveAudio:
		serviceType = 2
	default:
		serviceType = 100
	}
	return serviceType, scrambled
}
