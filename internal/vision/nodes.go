package vision

// Register names used by camsync. They follow the SFNC naming the SDK exposes.
const (
	NodeUserSetSelector = "UserSetSelector"
	NodeUserSetLoad     = "UserSetLoad"

	NodeAcquisitionMode = "AcquisitionMode"
	NodeExposureMode    = "ExposureMode"
	NodeExposureAuto    = "ExposureAuto"
	NodeGainAuto        = "GainAuto"

	NodeExposureTime    = "ExposureTime"
	NodeExposureTimeAbs = "ExposureTimeAbs"
	NodeExposureTimeRaw = "ExposureTimeRaw"
	NodeGain            = "Gain"
	NodeGamma           = "Gamma"
	NodeBlackLevel      = "BlackLevel"

	NodeBinningHorizontal     = "BinningHorizontal"
	NodeBinningVertical       = "BinningVertical"
	NodeBinningHorizontalMode = "BinningHorizontalMode"
	NodeBinningVerticalMode   = "BinningVerticalMode"

	NodeWidth     = "Width"
	NodeHeight    = "Height"
	NodeWidthMax  = "WidthMax"
	NodeHeightMax = "HeightMax"
	NodeCenterX   = "CenterX"
	NodeCenterY   = "CenterY"

	NodeThroughputLimitMode = "DeviceLinkThroughputLimitMode"
	NodeThroughputLimit     = "DeviceLinkThroughputLimit"

	NodeTriggerSelector   = "TriggerSelector"
	NodeTriggerMode       = "TriggerMode"
	NodeTriggerSource     = "TriggerSource"
	NodeTriggerActivation = "TriggerActivation"
	NodeTriggerDelay      = "TriggerDelay"
	NodeLineSelector      = "LineSelector"
	NodeLineMode          = "LineMode"
	NodeLineDebouncerTime = "LineDebouncerTime"

	NodeFrameRateEnable    = "AcquisitionFrameRateEnable"
	NodeFrameRate          = "AcquisitionFrameRate"
	NodeFrameRateAbs       = "AcquisitionFrameRateAbs"
	NodeResultingFrameRate = "ResultingFrameRate"

	NodeDeviceTemperature = "DeviceTemperature"
	NodeTemperatureState  = "TemperatureState"
)
