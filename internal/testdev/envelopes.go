package testdev

import (
	"fmt"
	"strings"
	"time"
)

// capabilitiesEnvelope builds the capability document, advertising the
// selected services at the live listener address.
func capabilitiesEnvelope(base string, s Services) string {
	var sections strings.Builder
	sections.WriteString(fmt.Sprintf(`
        <tt:Device>
          <tt:XAddr>%s/onvif/device_service</tt:XAddr>
        </tt:Device>`, base))
	if s.Events {
		sections.WriteString(fmt.Sprintf(`
        <tt:Events>
          <tt:XAddr>%s/onvif/Events</tt:XAddr>
          <tt:WSPullPointSupport>true</tt:WSPullPointSupport>
        </tt:Events>`, base))
	}
	if s.Imaging {
		sections.WriteString(fmt.Sprintf(`
        <tt:Imaging>
          <tt:XAddr>%s/onvif/Imaging</tt:XAddr>
        </tt:Imaging>`, base))
	}
	if s.Media {
		sections.WriteString(fmt.Sprintf(`
        <tt:Media>
          <tt:XAddr>%s/onvif/Media</tt:XAddr>
          <tt:StreamingCapabilities>
            <tt:RTPMulticast>false</tt:RTPMulticast>
            <tt:RTP_TCP>true</tt:RTP_TCP>
            <tt:RTP_RTSP_TCP>true</tt:RTP_RTSP_TCP>
          </tt:StreamingCapabilities>
        </tt:Media>`, base))
	}
	if s.PTZ {
		sections.WriteString(fmt.Sprintf(`
        <tt:PTZ>
          <tt:XAddr>%s/onvif/PTZ</tt:XAddr>
        </tt:PTZ>`, base))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tds="http://www.onvif.org/ver10/device/wsdl"
    xmlns:tt="http://www.onvif.org/ver10/schema">
  <SOAP-ENV:Body>
    <tds:GetCapabilitiesResponse>
      <tds:Capabilities>%s
      </tds:Capabilities>
    </tds:GetCapabilitiesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`, sections.String())
}

const deviceInformationEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
  <SOAP-ENV:Body>
    <tds:GetDeviceInformationResponse>
      <tds:Manufacturer>TestDev</tds:Manufacturer>
      <tds:Model>TD-1000</tds:Model>
      <tds:FirmwareVersion>1.2.3</tds:FirmwareVersion>
      <tds:SerialNumber>TD1000-0001</tds:SerialNumber>
      <tds:HardwareId>1</tds:HardwareId>
    </tds:GetDeviceInformationResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// systemDateTimeEnvelope reports the device clock as the given instant.
func systemDateTimeEnvelope(now time.Time) string {
	utc := now.UTC()
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tds="http://www.onvif.org/ver10/device/wsdl"
    xmlns:tt="http://www.onvif.org/ver10/schema">
  <SOAP-ENV:Body>
    <tds:GetSystemDateAndTimeResponse>
      <tds:SystemDateAndTime>
        <tt:DateTimeType>NTP</tt:DateTimeType>
        <tt:DaylightSavings>false</tt:DaylightSavings>
        <tt:TimeZone>
          <tt:TZ>UTC</tt:TZ>
        </tt:TimeZone>
        <tt:UTCDateTime>
          <tt:Time>
            <tt:Hour>%d</tt:Hour>
            <tt:Minute>%d</tt:Minute>
            <tt:Second>%d</tt:Second>
          </tt:Time>
          <tt:Date>
            <tt:Year>%d</tt:Year>
            <tt:Month>%d</tt:Month>
            <tt:Day>%d</tt:Day>
          </tt:Date>
        </tt:UTCDateTime>
      </tds:SystemDateAndTime>
    </tds:GetSystemDateAndTimeResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`,
		utc.Hour(), utc.Minute(), utc.Second(),
		utc.Year(), int(utc.Month()), utc.Day())
}

const topicSetEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl"
    xmlns:tns1="http://www.onvif.org/ver10/topics"
    xmlns:wstop="http://docs.oasis-open.org/wsn/t-1"
    xmlns:tt="http://www.onvif.org/ver10/schema">
  <SOAP-ENV:Body>
    <tev:GetEventPropertiesResponse>
      <tev:TopicSet>
        <tns1:RuleEngine>
          <tns1:CellMotionDetector>
            <tns1:Motion wstop:topic="true">
              <tt:MessageDescription IsProperty="true">
                <tt:Data>
                  <tt:SimpleItemDescription Name="IsMotion" Type="xs:boolean"/>
                </tt:Data>
              </tt:MessageDescription>
            </tns1:Motion>
          </tns1:CellMotionDetector>
        </tns1:RuleEngine>
        <tns1:Device>
          <tns1:Trigger>
            <tns1:DigitalInput wstop:topic="true"/>
          </tns1:Trigger>
        </tns1:Device>
      </tev:TopicSet>
    </tev:GetEventPropertiesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const profilesEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:trt="http://www.onvif.org/ver10/media/wsdl"
    xmlns:tt="http://www.onvif.org/ver10/schema">
  <SOAP-ENV:Body>
    <trt:GetProfilesResponse>
      <trt:Profiles token="Profile_1" fixed="true">
        <tt:Name>mainStream</tt:Name>
        <tt:VideoEncoderConfiguration token="VideoEncoderToken_1">
          <tt:Name>VideoEncoder_1</tt:Name>
          <tt:Encoding>H264</tt:Encoding>
          <tt:Resolution>
            <tt:Width>1920</tt:Width>
            <tt:Height>1080</tt:Height>
          </tt:Resolution>
          <tt:Quality>3</tt:Quality>
        </tt:VideoEncoderConfiguration>
      </trt:Profiles>
    </trt:GetProfilesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const streamURIEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:trt="http://www.onvif.org/ver10/media/wsdl"
    xmlns:tt="http://www.onvif.org/ver10/schema">
  <SOAP-ENV:Body>
    <trt:GetStreamUriResponse>
      <trt:MediaUri>
        <tt:Uri>rtsp://127.0.0.1:554/stream/main</tt:Uri>
      </trt:MediaUri>
    </trt:GetStreamUriResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const snapshotURIEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:trt="http://www.onvif.org/ver10/media/wsdl"
    xmlns:tt="http://www.onvif.org/ver10/schema">
  <SOAP-ENV:Body>
    <trt:GetSnapshotUriResponse>
      <trt:MediaUri>
        <tt:Uri>http://127.0.0.1/snapshot/main</tt:Uri>
      </trt:MediaUri>
    </trt:GetSnapshotUriResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// createResponseTemplate answers CreatePullPointSubscription: manager
// address, current time, termination time.
const createResponseTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"
    xmlns:wsa="http://www.w3.org/2005/08/addressing">
  <SOAP-ENV:Body>
    <tev:CreatePullPointSubscriptionResponse>
      <tev:SubscriptionReference>
        <wsa:Address>%s</wsa:Address>
      </tev:SubscriptionReference>
      <wsnt:CurrentTime>%s</wsnt:CurrentTime>
      <wsnt:TerminationTime>%s</wsnt:TerminationTime>
    </tev:CreatePullPointSubscriptionResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// pullTemplate answers PullMessages: current time, termination time, and
// the notification fragments of the batch.
const pullTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"
    xmlns:tns1="http://www.onvif.org/ver10/topics"
    xmlns:tt="http://www.onvif.org/ver10/schema">
  <SOAP-ENV:Body>
    <tev:PullMessagesResponse>
      <tev:CurrentTime>%s</tev:CurrentTime>
      <tev:TerminationTime>%s</tev:TerminationTime>
%s
    </tev:PullMessagesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const pullEmptyTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:tev="http://www.onvif.org/ver10/events/wsdl">
  <SOAP-ENV:Body>
    <tev:PullMessagesResponse>
      <tev:CurrentTime>%s</tev:CurrentTime>
      <tev:TerminationTime>%s</tev:TerminationTime>
    </tev:PullMessagesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const renewResponseTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2">
  <SOAP-ENV:Body>
    <wsnt:RenewResponse>
      <wsnt:TerminationTime>%s</wsnt:TerminationTime>
      <wsnt:CurrentTime>%s</wsnt:CurrentTime>
    </wsnt:RenewResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const unsubscribeResponseEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2">
  <SOAP-ENV:Body>
    <wsnt:UnsubscribeResponse/>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const resourceUnknownEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:wsrf-rw="http://docs.oasis-open.org/wsrf/rw-2">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <SOAP-ENV:Code>
        <SOAP-ENV:Value>SOAP-ENV:Sender</SOAP-ENV:Value>
        <SOAP-ENV:Subcode>
          <SOAP-ENV:Value>wsrf-rw:ResourceUnknownFault</SOAP-ENV:Value>
        </SOAP-ENV:Subcode>
      </SOAP-ENV:Code>
      <SOAP-ENV:Reason>
        <SOAP-ENV:Text xml:lang="en">Subscription does not exist</SOAP-ENV:Text>
      </SOAP-ENV:Reason>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const actionNotSupportedEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"
    xmlns:ter="http://www.onvif.org/ver10/error">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <SOAP-ENV:Code>
        <SOAP-ENV:Value>SOAP-ENV:Sender</SOAP-ENV:Value>
        <SOAP-ENV:Subcode>
          <SOAP-ENV:Value>ter:ActionNotSupported</SOAP-ENV:Value>
        </SOAP-ENV:Subcode>
      </SOAP-ENV:Code>
      <SOAP-ENV:Reason>
        <SOAP-ENV:Text xml:lang="en">Optional action not implemented</SOAP-ENV:Text>
      </SOAP-ENV:Reason>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// Motion builds one cell motion notification fragment for QueueBatch.
func Motion(active bool) string {
	return fmt.Sprintf(`      <wsnt:NotificationMessage>
        <wsnt:Topic Dialect="http://www.onvif.org/ver10/tev/topicExpression/ConcreteSet">tns1:RuleEngine/CellMotionDetector/Motion</wsnt:Topic>
        <wsnt:Message>
          <tt:Message UtcTime="%s" PropertyOperation="Changed">
            <tt:Source>
              <tt:SimpleItem Name="VideoSourceConfigurationToken" Value="VideoSourceToken"/>
            </tt:Source>
            <tt:Data>
              <tt:SimpleItem Name="IsMotion" Value="%t"/>
            </tt:Data>
          </tt:Message>
        </wsnt:Message>
      </wsnt:NotificationMessage>`, timestamp(time.Now()), active)
}

// DigitalInput builds one digital input notification fragment for
// QueueBatch.
func DigitalInput(token string, state bool) string {
	return fmt.Sprintf(`      <wsnt:NotificationMessage>
        <wsnt:Topic Dialect="http://www.onvif.org/ver10/tev/topicExpression/ConcreteSet">tns1:Device/Trigger/DigitalInput</wsnt:Topic>
        <wsnt:Message>
          <tt:Message UtcTime="%s" PropertyOperation="Changed">
            <tt:Source>
              <tt:SimpleItem Name="InputToken" Value="%s"/>
            </tt:Source>
            <tt:Data>
              <tt:SimpleItem Name="LogicalState" Value="%t"/>
            </tt:Data>
          </tt:Message>
        </wsnt:Message>
      </wsnt:NotificationMessage>`, timestamp(time.Now()), token, state)
}
